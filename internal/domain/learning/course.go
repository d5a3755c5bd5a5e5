package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/gorm"
)

type Course struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"instructor_id"`
	Instructor   *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`

	Title        string   `gorm:"column:title;not null" json:"title"`
	Description  string   `gorm:"column:description;type:text;not null" json:"description"`
	Category     Category `gorm:"column:category;not null;index" json:"category"`
	Level        Level    `gorm:"column:level;not null" json:"level"`
	Price        float64  `gorm:"column:price;not null;default:0" json:"price"`
	ThumbnailURL string   `gorm:"column:thumbnail_url" json:"thumbnail_url"`

	// IsPublished is true iff Status is approved; only approve/reject change either.
	Status          CourseStatus `gorm:"column:status;not null;index" json:"status"`
	IsPublished     bool         `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	RejectionReason string       `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`

	// Denormalized aggregates. Written only through CourseRepo counter/recompute methods.
	EnrolledCount int     `gorm:"column:enrolled_count;not null;default:0" json:"enrolled_count"`
	Rating        float64 `gorm:"column:rating;not null;default:0" json:"rating"`
	ReviewCount   int     `gorm:"column:review_count;not null;default:0" json:"review_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CourseStatusPending
	}
	return nil
}

func (c *Course) OwnedBy(userID uuid.UUID) bool {
	return c != nil && c.InstructorID == userID
}
