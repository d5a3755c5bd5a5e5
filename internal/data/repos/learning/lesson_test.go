package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestLessonRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "lessonrepo@example.com", types.RoleInstructor)
	c := testutil.SeedCourse(t, ctx, tx, u.ID, types.CourseStatusApproved)
	seeded := testutil.SeedLessons(t, ctx, tx, c.ID, 3)

	// Reverse display order so authoring order and display order differ.
	for i, l := range seeded {
		if err := repo.UpdateFields(dbc, l.ID, map[string]any{"order": 10 - i}); err != nil {
			t.Fatalf("UpdateFields: %v", err)
		}
	}

	ids, err := repo.ListIDsByCourseID(dbc, c.ID)
	if err != nil {
		t.Fatalf("ListIDsByCourseID: %v", err)
	}
	if len(ids) != 3 || ids[0] != seeded[0].ID || ids[2] != seeded[2].ID {
		t.Fatalf("ListIDsByCourseID: authoring order lost: %v", ids)
	}

	display, err := repo.GetByCourseIDs(dbc, []uuid.UUID{c.ID})
	if err != nil || len(display) != 3 {
		t.Fatalf("GetByCourseIDs: err=%v len=%d", err, len(display))
	}
	if display[0].ID != seeded[2].ID || display[2].ID != seeded[0].ID {
		t.Fatalf("GetByCourseIDs: expected display order by order field")
	}

	if n, err := repo.CountByCourseID(dbc, c.ID); err != nil || n != 3 {
		t.Fatalf("CountByCourseID: n=%d err=%v", n, err)
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{seeded[1].ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	ids, _ = repo.ListIDsByCourseID(dbc, c.ID)
	if len(ids) != 2 {
		t.Fatalf("after delete: want 2 ids got %d", len(ids))
	}

	if err := repo.FullDeleteByCourseIDs(dbc, []uuid.UUID{c.ID}); err != nil {
		t.Fatalf("FullDeleteByCourseIDs: %v", err)
	}
	if n, _ := repo.CountByCourseID(dbc, c.ID); n != 0 {
		t.Fatalf("after course delete: want 0 got %d", n)
	}
	if err := repo.UpdateFields(dbc, seeded[0].ID, map[string]any{"title": "gone"}); err == nil {
		t.Fatal("UpdateFields on deleted lesson: expected error")
	}
}
