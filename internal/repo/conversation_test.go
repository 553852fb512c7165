package repo

import (
	"testing"
	"time"

	"botbase/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func startConversation(t *testing.T, db *gorm.DB, chatbot *models.Chatbot, user string) (*models.Conversation, *models.Message) {
	t.Helper()

	conv := &models.Conversation{
		BaseOrgModel:   models.BaseOrgModel{OrganizationID: chatbot.OrganizationID},
		ChatbotID:      chatbot.ID,
		UserIdentifier: user,
		Platform:       models.PlatformWebsite,
	}
	seed, err := NewConversationRepository(db).CreateWithSeed(conv, "hello")
	require.NoError(t, err)
	return conv, seed
}

func TestCreateWithSeed(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)

	conv, seed := startConversation(t, db, chatbot, "visitor-1")

	assert.Equal(t, models.ConversationActive, conv.Status)
	assert.Equal(t, 1, conv.LastSequence)
	assert.Equal(t, conv.StartedAt, conv.LastMessageAt)

	assert.Equal(t, conv.ID, seed.ConversationID)
	assert.Equal(t, 1, seed.Sequence)
	assert.Equal(t, models.RoleUser, seed.Role)
	assert.Equal(t, "hello", seed.Content)
}

func TestAddMessageAssignsContiguousSequences(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	conv, _ := startConversation(t, db, chatbot, "visitor-1")

	roles := []string{models.RoleAssistant, models.RoleUser, models.RoleAssistant, models.RoleUser}
	for i, role := range roles {
		msg, err := convRepo.AddMessage(conv.ID, role, "reply", nil)
		require.NoError(t, err)
		assert.Equal(t, i+2, msg.Sequence)
	}

	full, err := convRepo.GetByID(conv.ID, org.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 5)
	for i, msg := range full.Messages {
		assert.Equal(t, i+1, msg.Sequence)
	}
	assert.Equal(t, 5, full.LastSequence)
}

func TestAddMessageAdvancesLastMessageAt(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	conv, _ := startConversation(t, db, chatbot, "visitor-1")
	before := conv.LastMessageAt

	msg, err := convRepo.AddMessage(conv.ID, models.RoleAssistant, "hi there", nil)
	require.NoError(t, err)

	updated, err := convRepo.GetByID(conv.ID, org.ID)
	require.NoError(t, err)
	assert.False(t, updated.LastMessageAt.Before(before))
	assert.WithinDuration(t, msg.CreatedAt, updated.LastMessageAt, time.Millisecond)
}

func TestAddMessageUnknownConversation(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationRepository(db)

	_, err := convRepo.AddMessage(uuid.New(), models.RoleUser, "hello", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAddMessageAcceptsResolvedConversations(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	conv, _ := startConversation(t, db, chatbot, "visitor-1")
	require.NoError(t, convRepo.UpdateStatus(conv.ID, org.ID, models.ConversationResolved))

	msg, err := convRepo.AddMessage(conv.ID, models.RoleUser, "one more thing", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, msg.Sequence)
}

func TestGetActive(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	// No conversation yet
	conv, err := convRepo.GetActive(chatbot.ID, "visitor-1", models.PlatformWebsite)
	require.NoError(t, err)
	assert.Nil(t, conv)

	created, _ := startConversation(t, db, chatbot, "visitor-1")

	conv, err = convRepo.GetActive(chatbot.ID, "visitor-1", models.PlatformWebsite)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, created.ID, conv.ID)

	// Different platform is a different thread
	conv, err = convRepo.GetActive(chatbot.ID, "visitor-1", models.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Nil(t, conv)

	// Resolving removes it from the active lookup
	require.NoError(t, convRepo.UpdateStatus(created.ID, org.ID, models.ConversationResolved))
	conv, err = convRepo.GetActive(chatbot.ID, "visitor-1", models.PlatformWebsite)
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestGetActiveTieBreaksOnMostRecent(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	first, _ := startConversation(t, db, chatbot, "visitor-1")
	second, _ := startConversation(t, db, chatbot, "visitor-1")

	// Force identical start times so the id tie-break decides
	require.NoError(t, db.Model(&models.Conversation{}).
		Where("id IN ?", []uuid.UUID{first.ID, second.ID}).
		Update("started_at", first.StartedAt).Error)

	conv, err := convRepo.GetActive(chatbot.ID, "visitor-1", models.PlatformWebsite)
	require.NoError(t, err)
	require.NotNil(t, conv)

	expected := first.ID
	if second.ID.String() > first.ID.String() {
		expected = second.ID
	}
	assert.Equal(t, expected, conv.ID)
}

func TestRateAndStatusRequireMatchingOrg(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db, "free")
	other := seedOrg(t, db, "free")
	chatbot := seedChatbot(t, db, org)
	convRepo := NewConversationRepository(db)

	conv, _ := startConversation(t, db, chatbot, "visitor-1")

	assert.ErrorIs(t, convRepo.Rate(conv.ID, other.ID, 5, "great"), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, convRepo.UpdateStatus(conv.ID, other.ID, models.ConversationResolved), gorm.ErrRecordNotFound)

	require.NoError(t, convRepo.Rate(conv.ID, org.ID, 4, "helpful"))
	got, err := convRepo.GetByID(conv.ID, org.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)
	assert.Equal(t, "helpful", got.Feedback)
}
