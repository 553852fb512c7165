package repo

import (
	"botbase/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationRepository handles organization data access
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID gets an organization by ID
func (r *OrganizationRepository) GetByID(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByBillingCustomerID gets an organization by its external billing reference
func (r *OrganizationRepository) GetByBillingCustomerID(customerID string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("billing_customer_id = ?", customerID).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create creates a new organization
func (r *OrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// Update updates an organization
func (r *OrganizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

// UpdateTier changes the subscription tier. The new tier takes effect on the
// next limit evaluation; already-consumed usage is never re-checked.
func (r *OrganizationRepository) UpdateTier(id uuid.UUID, tier string) error {
	result := r.db.Model(&models.Organization{}).
		Where("id = ?", id).
		Update("tier", tier)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List lists organizations with pagination (system admin)
func (r *OrganizationRepository) List(limit, offset int) (models.PaginationResult[models.Organization], error) {
	var orgs []models.Organization
	var total int64

	if err := r.db.Model(&models.Organization{}).Count(&total).Error; err != nil {
		return models.PaginationResult[models.Organization]{}, err
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orgs).Error
	if err != nil {
		return models.PaginationResult[models.Organization]{}, err
	}

	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return models.PaginationResult[models.Organization]{
		Data:       orgs,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// ListAll returns every organization (used by the usage reconciler)
func (r *OrganizationRepository) ListAll() ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.Find(&orgs).Error
	return orgs, err
}
