package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "usertokenrepo@example.com", types.RoleStudent)

	makeToken := func(access, refresh string, expires time.Time) *types.UserToken {
		return &types.UserToken{
			ID:           uuid.New(),
			UserID:       u.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    expires,
		}
	}

	t1 := makeToken("access-1", "refresh-1", time.Now().UTC().Add(time.Hour))
	if _, err := repo.Create(dbc, []*types.UserToken{t1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{t1.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByUserIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByAccessTokens(dbc, []string{"access-1"}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByAccessTokens: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByRefreshTokens(dbc, []string{"refresh-1"}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByRefreshTokens: err=%v len=%d", err, len(rows))
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{t1.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{t1.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after FullDeleteByIDs GetByIDs: err=%v len=%d", err, len(rows))
	}

	expired := makeToken("access-2", "refresh-2", time.Now().UTC().Add(-time.Hour))
	live := makeToken("access-3", "refresh-3", time.Now().UTC().Add(time.Hour))
	if _, err := repo.Create(dbc, []*types.UserToken{expired, live}); err != nil {
		t.Fatalf("Create batch: %v", err)
	}
	n, err := repo.FullDeleteExpired(dbc, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("FullDeleteExpired: n=%d err=%v", n, err)
	}

	if err := repo.FullDeleteByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil {
		t.Fatalf("FullDeleteByUserIDs: %v", err)
	}
	if rows, err := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after FullDeleteByUserIDs: err=%v len=%d", err, len(rows))
	}
}

func TestPasswordResetTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPasswordResetTokenRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "reset@example.com", types.RoleStudent)
	now := time.Now().UTC()

	tok := &types.PasswordResetToken{UserID: u.ID, TokenHash: "hash-1", ExpiresAt: now.Add(time.Hour)}
	old := &types.PasswordResetToken{UserID: u.ID, TokenHash: "hash-2", ExpiresAt: now.Add(-time.Hour)}
	if _, err := repo.Create(dbc, []*types.PasswordResetToken{tok, old}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByTokenHash(dbc, "hash-1")
	if err != nil || got == nil || got.ID != tok.ID {
		t.Fatalf("GetByTokenHash: got=%+v err=%v", got, err)
	}
	if missing, err := repo.GetByTokenHash(dbc, "nope"); err != nil || missing != nil {
		t.Fatalf("GetByTokenHash missing: got=%+v err=%v", missing, err)
	}

	ok, err := repo.MarkUsed(dbc, tok.ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkUsed first: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkUsed(dbc, tok.ID, now)
	if err != nil || ok {
		t.Fatalf("MarkUsed second: ok=%v err=%v", ok, err)
	}

	n, err := repo.FullDeleteStale(dbc, now)
	if err != nil || n != 2 {
		t.Fatalf("FullDeleteStale: n=%d err=%v", n, err)
	}
}
