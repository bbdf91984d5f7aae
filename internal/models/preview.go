package models

import (
	"time"

	"github.com/google/uuid"
)

// Preview is a stored massing model together with its optional layer metadata.
type Preview struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	ModelKey         string    `json:"model_key"`
	MetadataKey      string    `json:"metadata_key,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`

	Views []ViewState `json:"views,omitempty" gorm:"foreignKey:PreviewID;constraint:OnDelete:CASCADE"`
}

// ViewState is a saved layer visibility/focus combination for a preview.
type ViewState struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	PreviewID    uuid.UUID       `json:"preview_id" gorm:"type:uuid;not null;index"`
	Name         string          `json:"name" gorm:"not null"`
	Visibility   map[string]bool `json:"visibility" gorm:"serializer:json"`
	FocusLayerID string          `json:"focus_layer_id"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
