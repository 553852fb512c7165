package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// bearerAuth implements credentials.PerRPCCredentials for Qdrant API keys
type bearerAuth struct {
	apiKey string
}

func (b *bearerAuth) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{
		"authorization": "Bearer " + b.apiKey,
	}, nil
}

func (b *bearerAuth) RequireTransportSecurity() bool {
	return false
}

// Turn is one user/assistant exchange stored in semantic memory
type Turn struct {
	UserMessage    string
	AssistantReply string
	Timestamp      time.Time
}

// RecalledTurn is a past exchange returned by semantic search
type RecalledTurn struct {
	UserMessage    string
	AssistantReply string
	Score          float32
}

// Memory stores conversation turns as embeddings in Qdrant and retrieves the
// ones most similar to the current user message. One collection per
// organization keeps tenants physically separated.
type Memory struct {
	openaiClient *openai.Client
	collections  qdrant.CollectionsClient
	points       qdrant.PointsClient
	conn         *grpc.ClientConn
}

// NewMemoryFromEnv builds a semantic memory from QDRANT_URL (and optional
// QDRANT_API_KEY), or returns nil when not configured. Requires an OpenAI key
// for embeddings.
func NewMemoryFromEnv() (*Memory, error) {
	qdrantURL := os.Getenv("QDRANT_URL")
	apiKey := os.Getenv("OPENAI_API_KEY")
	if qdrantURL == "" || apiKey == "" {
		log.Info().Msg("QDRANT_URL or OPENAI_API_KEY not set, semantic memory disabled")
		return nil, nil
	}

	var dialOpts []grpc.DialOption
	if qdrantKey := os.Getenv("QDRANT_API_KEY"); qdrantKey != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(&bearerAuth{apiKey: qdrantKey}))
	}
	dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))

	conn, err := grpc.Dial(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &Memory{
		openaiClient: openai.NewClient(apiKey),
		collections:  qdrant.NewCollectionsClient(conn),
		points:       qdrant.NewPointsClient(conn),
		conn:         conn,
	}, nil
}

// Close releases the Qdrant connection
func (m *Memory) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

func collectionName(orgID string) string {
	return fmt.Sprintf("turns_org_%s", orgID)
}

// embed generates an embedding for text
func (m *Memory) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return resp.Data[0].Embedding, nil
}

// ensureCollection creates the organization's collection if it does not exist
func (m *Memory) ensureCollection(ctx context.Context, name string) error {
	_, err := m.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: name,
	})
	if err == nil {
		return nil
	}

	_, err = m.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     1536, // OpenAI embedding dimension
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// StoreTurn embeds a turn and upserts it into the organization's collection
func (m *Memory) StoreTurn(ctx context.Context, orgID, conversationID string, turn Turn) error {
	name := collectionName(orgID)
	if err := m.ensureCollection(ctx, name); err != nil {
		return err
	}

	embedding, err := m.embed(ctx, turn.UserMessage+"\n"+turn.AssistantReply)
	if err != nil {
		return err
	}

	payload := map[string]*qdrant.Value{
		"conversation_id": {Kind: &qdrant.Value_StringValue{StringValue: conversationID}},
		"user_message":    {Kind: &qdrant.Value_StringValue{StringValue: turn.UserMessage}},
		"assistant_reply": {Kind: &qdrant.Value_StringValue{StringValue: turn.AssistantReply}},
		"timestamp":       {Kind: &qdrant.Value_IntegerValue{IntegerValue: turn.Timestamp.Unix()}},
	}

	_, err = m.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points: []*qdrant.PointStruct{
			{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.New().String()},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: embedding},
					},
				},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store turn in Qdrant: %w", err)
	}
	return nil
}

// SearchTurns returns past turns from the conversation most similar to query
func (m *Memory) SearchTurns(ctx context.Context, orgID, conversationID, query string, limit uint64) ([]RecalledTurn, error) {
	name := collectionName(orgID)

	queryEmbedding, err := m.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "conversation_id",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: conversationID},
						},
					},
				},
			},
		},
	}

	resp, err := m.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: name,
		Vector:         queryEmbedding,
		Filter:         filter,
		Limit:          limit,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		// A missing collection just means no memories yet
		return nil, nil
	}

	turns := make([]RecalledTurn, 0, len(resp.Result))
	for _, point := range resp.Result {
		turn := RecalledTurn{Score: point.Score}
		if payload := point.Payload; payload != nil {
			if v, ok := payload["user_message"]; ok {
				if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
					turn.UserMessage = s.StringValue
				}
			}
			if v, ok := payload["assistant_reply"]; ok {
				if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
					turn.AssistantReply = s.StringValue
				}
			}
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
