package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"diagramai/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type DiagramModel struct {
	ID              string         `gorm:"primaryKey"`
	OwnerID         string         `gorm:"not null;index"`
	Title           string         `gorm:"not null"`
	Kind            string         `gorm:"not null;index"`
	OriginText      string         `gorm:"type:text;not null"`
	Description     string         `gorm:"type:text;not null"`
	SourceKey       string
	SourceFilename  string
	DatasetSnapshot datatypes.JSON `gorm:"type:jsonb"`
	Excerpt         string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"not null;index"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func diagramToModel(d domain.Diagram) (DiagramModel, error) {
	model := DiagramModel{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		Title:          d.Title,
		Kind:           string(d.Kind),
		OriginText:     d.OriginText,
		Description:    d.Description,
		SourceKey:      d.SourceKey,
		SourceFilename: d.SourceFilename,
		Excerpt:        d.Excerpt,
		CreatedAt:      d.CreatedAt,
	}
	if len(d.DatasetSnapshot) > 0 {
		raw, err := json.Marshal(d.DatasetSnapshot)
		if err != nil {
			return DiagramModel{}, err
		}
		model.DatasetSnapshot = datatypes.JSON(raw)
	}
	return model, nil
}

func diagramFromModel(m DiagramModel) domain.Diagram {
	d := domain.Diagram{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Title:          m.Title,
		Kind:           domain.DiagramKind(m.Kind),
		OriginText:     m.OriginText,
		Description:    m.Description,
		SourceKey:      m.SourceKey,
		SourceFilename: m.SourceFilename,
		Excerpt:        m.Excerpt,
		CreatedAt:      m.CreatedAt,
	}
	if len(m.DatasetSnapshot) > 0 {
		// Snapshot decode failures leave the field empty rather than
		// failing the read.
		var points []domain.DataPoint
		if err := json.Unmarshal(m.DatasetSnapshot, &points); err == nil {
			d.DatasetSnapshot = points
		}
	}
	return d
}
