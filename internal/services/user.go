package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type UserListQuery struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

type UserPage struct {
	Users []*types.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*types.User, error)
	ListUsers(ctx context.Context, q UserListQuery) (*UserPage, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:       db,
		log:      serviceLog,
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	found, err := us.userRepo.GetByIDs(dbctx.New(ctx), []uuid.UUID{userID})
	if err != nil {
		return nil, internalErr("load user", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("user_not_found")
	}
	return found[0], nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*types.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if len(fields) > 0 {
		if err := us.userRepo.UpdateProfile(dbctx.New(ctx), userID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("user_not_found")
			}
			return nil, internalErr("update profile", err)
		}
	}
	return us.GetMe(ctx, userID)
}

func (us *userService) ListUsers(ctx context.Context, q UserListQuery) (*UserPage, error) {
	var role types.Role
	if q.Role != "" {
		r, err := types.ParseRole(q.Role)
		if err != nil {
			return nil, apierr.Validation("role_invalid", err)
		}
		role = r
	}
	page, limit, offset := pageBounds(q.Page, q.Limit, 20, 100)
	users, total, err := us.userRepo.List(dbctx.New(ctx), repos.UserQuery{
		Role:   role,
		Search: strings.TrimSpace(q.Search),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, internalErr("list users", err)
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}
