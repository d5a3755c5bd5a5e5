package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type PasswordResetTokenRepo interface {
	Create(dbc dbctx.Context, tokens []*types.PasswordResetToken) ([]*types.PasswordResetToken, error)
	GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.PasswordResetToken, error)
	MarkUsed(dbc dbctx.Context, tokenID uuid.UUID, at time.Time) (bool, error)
	FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
	FullDeleteStale(dbc dbctx.Context, now time.Time) (int64, error)
}

type passwordResetTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPasswordResetTokenRepo(db *gorm.DB, baseLog *logger.Logger) PasswordResetTokenRepo {
	repoLog := baseLog.With("repo", "PasswordResetTokenRepo")
	return &passwordResetTokenRepo{db: db, log: repoLog}
}

func (r *passwordResetTokenRepo) Create(dbc dbctx.Context, tokens []*types.PasswordResetToken) ([]*types.PasswordResetToken, error) {
	if len(tokens) == 0 {
		return []*types.PasswordResetToken{}, nil
	}
	if err := dbc.DB(r.db).Create(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// GetByTokenHash returns nil, nil when no row matches.
func (r *passwordResetTokenRepo) GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.PasswordResetToken, error) {
	var rows []*types.PasswordResetToken
	if err := dbc.DB(r.db).
		Where("token_hash = ?", tokenHash).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// MarkUsed flips used_at once. It reports false when the token was already used, so two
// concurrent resets with one token cannot both succeed.
func (r *passwordResetTokenRepo) MarkUsed(dbc dbctx.Context, tokenID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Update("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *passwordResetTokenRepo) FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("user_id IN ?", userIDs).
		Delete(&types.PasswordResetToken{}).Error
}

func (r *passwordResetTokenRepo) FullDeleteStale(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&types.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
