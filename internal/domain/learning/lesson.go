package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lesson holds exactly one media slot, matching Type. Type never changes after creation.
type Lesson struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Course      *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Type        LessonType `gorm:"column:type;not null" json:"type"`

	VideoURL         string `gorm:"column:video_url" json:"video_url,omitempty"`
	VideoPublicID    string `gorm:"column:video_public_id" json:"video_public_id,omitempty"`
	DocumentURL      string `gorm:"column:document_url" json:"document_url,omitempty"`
	DocumentPublicID string `gorm:"column:document_public_id" json:"document_public_id,omitempty"`

	Duration int  `gorm:"column:duration;not null;default:0" json:"duration"`
	Order    int  `gorm:"column:order;not null;index" json:"order"`
	IsFree   bool `gorm:"column:is_free;not null;default:false" json:"is_free"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// HideMedia blanks the media URLs for viewers who may not play the lesson.
func (l *Lesson) HideMedia() {
	l.VideoURL = ""
	l.VideoPublicID = ""
	l.DocumentURL = ""
	l.DocumentPublicID = ""
}
