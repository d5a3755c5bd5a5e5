package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// CourseRating is the course's review aggregate after a recompute.
type CourseRating struct {
	CourseID    uuid.UUID `json:"course_id"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
}

// RatingAggregator owns Course.Rating and Course.ReviewCount. It always recomputes from every
// non-null enrollment rating; there is no incremental path.
type RatingAggregator interface {
	Recompute(ctx context.Context, courseID uuid.UUID) (CourseRating, error)
}

type ratingAggregator struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
}

func NewRatingAggregator(log *logger.Logger, courseRepo repos.CourseRepo) RatingAggregator {
	return &ratingAggregator{
		log:        log.With("service", "RatingAggregator"),
		courseRepo: courseRepo,
	}
}

func (ra *ratingAggregator) Recompute(ctx context.Context, courseID uuid.UUID) (CourseRating, error) {
	dbc := dbctx.New(ctx)
	if err := ra.courseRepo.RecomputeRating(dbc, courseID); err != nil {
		return CourseRating{}, fmt.Errorf("recompute rating: %w", err)
	}
	found, err := ra.courseRepo.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return CourseRating{}, fmt.Errorf("reload course: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return CourseRating{}, fmt.Errorf("course %s disappeared during rating recompute", courseID)
	}
	ra.log.Debug("course rating recomputed", "course_id", courseID, "rating", found[0].Rating, "review_count", found[0].ReviewCount)
	return CourseRating{
		CourseID:    courseID,
		Rating:      found[0].Rating,
		ReviewCount: found[0].ReviewCount,
	}, nil
}
