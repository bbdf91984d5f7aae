package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"preview-service/internal/models"
)

// PreviewRepository stores preview records and their saved views.
type PreviewRepository interface {
	Create(preview *models.Preview) error
	GetByID(id uuid.UUID) (*models.Preview, error)
	List() ([]models.Preview, error)
	Delete(id uuid.UUID) error

	CreateView(view *models.ViewState) error
	GetView(previewID, viewID uuid.UUID) (*models.ViewState, error)
	ListViews(previewID uuid.UUID) ([]models.ViewState, error)
}

// PreviewRepositoryImpl is the GORM implementation of PreviewRepository.
type PreviewRepositoryImpl struct {
	db *gorm.DB
}

func NewPreviewRepository(db *gorm.DB) *PreviewRepositoryImpl {
	return &PreviewRepositoryImpl{db: db}
}

// Migrate creates or updates the preview tables.
func (r *PreviewRepositoryImpl) Migrate() error {
	return r.db.AutoMigrate(&models.Preview{}, &models.ViewState{})
}

func (r *PreviewRepositoryImpl) Create(preview *models.Preview) error {
	return r.db.Create(preview).Error
}

// GetByID returns gorm.ErrRecordNotFound for an unknown id.
func (r *PreviewRepositoryImpl) GetByID(id uuid.UUID) (*models.Preview, error) {
	var preview models.Preview
	if err := r.db.First(&preview, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &preview, nil
}

// List returns previews newest first.
func (r *PreviewRepositoryImpl) List() ([]models.Preview, error) {
	var previews []models.Preview
	err := r.db.Order("uploaded_at desc").Find(&previews).Error
	return previews, err
}

// Delete removes a preview and its saved views.
func (r *PreviewRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ViewState{}, "preview_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Preview{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PreviewRepositoryImpl) CreateView(view *models.ViewState) error {
	if view.ID == uuid.Nil {
		view.ID = uuid.New()
	}
	return r.db.Create(view).Error
}

func (r *PreviewRepositoryImpl) GetView(previewID, viewID uuid.UUID) (*models.ViewState, error) {
	var view models.ViewState
	if err := r.db.First(&view, "id = ? AND preview_id = ?", viewID, previewID).Error; err != nil {
		return nil, err
	}
	return &view, nil
}

// ListViews returns the saved views of a preview, oldest first.
func (r *PreviewRepositoryImpl) ListViews(previewID uuid.UUID) ([]models.ViewState, error) {
	var views []models.ViewState
	err := r.db.Where("preview_id = ?", previewID).Order("created_at asc").Find(&views).Error
	return views, err
}
