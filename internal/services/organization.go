package services

import (
	"fmt"

	"botbase/internal/auth"
	"botbase/internal/repo"
	"botbase/pkg/models"

	"github.com/google/uuid"
)

// SignupRequest bootstraps an organization with its first admin user
type SignupRequest struct {
	OrganizationName string `json:"organization_name" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
}

// OrganizationService handles organization lifecycle: signup, profile,
// subscription changes driven by billing webhooks.
type OrganizationService struct {
	orgRepo     *repo.OrganizationRepository
	userRepo    *repo.UserRepository
	authService *auth.Service
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo *repo.OrganizationRepository, userRepo *repo.UserRepository, authService *auth.Service) *OrganizationService {
	return &OrganizationService{
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		authService: authService,
	}
}

// Signup creates an organization on the free tier together with its admin user
func (s *OrganizationService) Signup(req SignupRequest) (*models.Organization, *models.User, error) {
	if _, err := s.userRepo.GetByEmail(req.Email); err == nil {
		return nil, nil, fmt.Errorf("email already registered")
	}

	hashed, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	org := &models.Organization{
		Name: req.OrganizationName,
		Tier: models.TierFree,
	}
	if err := s.orgRepo.Create(org); err != nil {
		return nil, nil, fmt.Errorf("failed to create organization: %w", err)
	}

	user := &models.User{
		OrganizationID: &org.ID,
		Email:          req.Email,
		Password:       hashed,
		Name:           req.Name,
		Role:           "org_admin",
	}
	user.IsActive = true
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	return org, user, nil
}

// Get returns an organization by ID
func (s *OrganizationService) Get(orgID uuid.UUID) (*models.Organization, error) {
	return s.orgRepo.GetByID(orgID)
}

// UpdateSubscription moves an organization to a new tier. The new limits
// apply from the next limit evaluation; usage already consumed under the old
// tier is never re-checked.
func (s *OrganizationService) UpdateSubscription(orgID uuid.UUID, newTier string) error {
	if !models.ValidTier(newTier) {
		return fmt.Errorf("invalid tier: %s", newTier)
	}
	return s.orgRepo.UpdateTier(orgID, newTier)
}

// List returns organizations with pagination (system admin)
func (s *OrganizationService) List(limit, offset int) (models.PaginationResult[models.Organization], error) {
	return s.orgRepo.List(limit, offset)
}
