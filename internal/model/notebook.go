package model

import (
	"time"

	"github.com/google/uuid"
)

// Notebook — блокнот (папка заметок). parent_id образует дерево.
// Инвариант: ровно один блокнот имеет IsDefault=true; блокнот по умолчанию
// удалить нельзя.
type Notebook struct {
	ID string `gorm:"primaryKey;type:uuid"`

	Name string `gorm:"not null"`

	ParentID *string   `gorm:"type:uuid;index"`
	Parent   *Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`

	Color       string
	Icon        string
	Description string

	SortOrder int  `gorm:"not null;default:0"`
	IsDefault bool `gorm:"not null;default:false"`

	CreatedAt  time.Time `gorm:"not null"`
	ModifiedAt time.Time `gorm:"not null"`
}

// NewNotebookID возвращает свежий уникальный идентификатор блокнота.
func NewNotebookID() string { return uuid.NewString() }
