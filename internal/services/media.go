package services

import (
	"context"
	"fmt"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

func mediaKindFor(t types.LessonType) gcp.MediaKind {
	switch t {
	case types.LessonTypeVideo:
		return gcp.MediaKindVideo
	case types.LessonTypeDocument:
		return gcp.MediaKindRaw
	default:
		return gcp.MediaKindRaw
	}
}

// releaseLessonMedia deletes every populated media slot of l. Failures are logged and
// returned but never stop the remaining deletes.
func releaseLessonMedia(ctx context.Context, store gcp.MediaStore, log *logger.Logger, l *types.Lesson) []error {
	if l == nil || store == nil {
		return nil
	}
	var errs []error
	dbc := dbctx.New(ctx)
	if l.VideoPublicID != "" {
		if err := store.Delete(dbc, gcp.MediaKindVideo, l.VideoPublicID); err != nil {
			log.Warn("lesson video release failed", "lesson_id", l.ID, "public_id", l.VideoPublicID, "error", err)
			errs = append(errs, fmt.Errorf("video %s: %w", l.VideoPublicID, err))
		}
	}
	if l.DocumentPublicID != "" {
		if err := store.Delete(dbc, gcp.MediaKindRaw, l.DocumentPublicID); err != nil {
			log.Warn("lesson document release failed", "lesson_id", l.ID, "public_id", l.DocumentPublicID, "error", err)
			errs = append(errs, fmt.Errorf("document %s: %w", l.DocumentPublicID, err))
		}
	}
	return errs
}
