package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,self_role"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *types.User `json:"user"`
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecretKey string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetTTL     time.Duration
	BcryptCost   int
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*types.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	resetRepo     repos.PasswordResetTokenRepo
	mail          MailService
	cfg           AuthConfig
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	resetRepo repos.PasswordResetTokenRepo,
	mail MailService,
	cfg AuthConfig,
) AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		resetRepo:     resetRepo,
		mail:          mail,
		cfg:           cfg,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	role := types.RoleStudent
	if in.Role != "" {
		role = types.Role(in.Role)
	}

	dbc := dbctx.New(ctx)
	exists, err := as.userRepo.EmailExists(dbc, in.Email)
	if err != nil {
		return nil, internalErr("check email", err)
	}
	if exists {
		return nil, apierr.Conflict("email_taken", errors.New("an account with this email already exists"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), as.cfg.BcryptCost)
	if err != nil {
		return nil, internalErr("hash password", err)
	}
	u := &types.User{
		Email:     in.Email,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
	}
	if _, err := as.userRepo.Create(dbc, []*types.User{u}); err != nil {
		if isDuplicateKey(err) {
			return nil, apierr.Conflict("email_taken", errors.New("an account with this email already exists"))
		}
		return nil, internalErr("create user", err)
	}
	as.log.Info("user registered", "user_id", u.ID, "role", role)
	return u, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apierr.Validation("credentials_required", errors.New("email and password are required"))
	}
	users, err := as.userRepo.GetByEmails(dbctx.New(ctx), []string{email})
	if err != nil {
		return nil, internalErr("load user", err)
	}
	if len(users) == 0 || users[0] == nil {
		return nil, invalidCredentials()
	}
	u := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}

	var session *Session
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := as.issueSession(dbctx.Context{Ctx: ctx, Tx: tx}, u)
		if err != nil {
			return err
		}
		session = s
		return nil
	}); err != nil {
		return nil, internalErr("login", err)
	}
	return session, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.Validation("refresh_token_required", errors.New("refresh_token is required"))
	}
	var session *Session
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByRefreshTokens(inner, []string{refreshToken})
		if err != nil {
			return internalErr("load refresh token", err)
		}
		if len(found) == 0 || found[0] == nil {
			return apierr.Unauthorized("refresh_token_invalid", errors.New("refresh token not recognized"))
		}
		existing := found[0]
		if existing.ExpiresAt.Before(time.Now()) {
			return apierr.Unauthorized("refresh_token_expired", errors.New("refresh token expired"))
		}
		users, err := as.userRepo.GetByIDs(inner, []uuid.UUID{existing.UserID})
		if err != nil {
			return internalErr("load user", err)
		}
		if len(users) == 0 || users[0] == nil {
			return apierr.Unauthorized("refresh_token_invalid", errors.New("user no longer exists"))
		}
		if err := as.userTokenRepo.FullDeleteByIDs(inner, []uuid.UUID{existing.ID}); err != nil {
			return internalErr("rotate token", err)
		}
		s, err := as.issueSession(inner, users[0])
		if err != nil {
			return internalErr("issue session", err)
		}
		session = s
		return nil
	})
	if err != nil {
		// Expired rows are removed outside the rolled-back transaction.
		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Code == "refresh_token_expired" {
			_ = as.purgeExpiredRefresh(ctx, refreshToken)
		}
		return nil, err
	}
	return session, nil
}

func (as *authService) purgeExpiredRefresh(ctx context.Context, refreshToken string) error {
	dbc := dbctx.New(ctx)
	found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
	if err != nil || len(found) == 0 {
		return err
	}
	return as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{found[0].ID})
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("unauthorized", errors.New("no session on request"))
	}
	dbc := dbctx.New(ctx)
	found, err := as.userTokenRepo.GetByAccessTokens(dbc, []string{rd.TokenString})
	if err != nil {
		return internalErr("load session", err)
	}
	if len(found) == 0 {
		return nil
	}
	if err := as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{found[0].ID}); err != nil {
		return internalErr("delete session", err)
	}
	return nil
}

// SetContextFromToken verifies the JWT and that its session row still exists, then installs
// the caller on ctx.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthorized("unauthorized", errors.New("missing token"))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, apierr.Unauthorized("token_invalid", fmt.Errorf("parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, apierr.Unauthorized("token_invalid", errors.New("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("token_invalid", fmt.Errorf("invalid subject: %w", err))
	}
	if _, err := types.ParseRole(claims.Role); err != nil {
		return ctx, apierr.Unauthorized("token_invalid", err)
	}
	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.New(ctx), []string{tokenString})
	if err != nil {
		return ctx, internalErr("load session", err)
	}
	if len(found) == 0 {
		return ctx, apierr.Unauthorized("session_revoked", errors.New("session no longer active"))
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}), nil
}

// ForgotPassword never reveals whether the email is registered.
func (as *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apierr.Validation("email_required", errors.New("email is required"))
	}
	dbc := dbctx.New(ctx)
	users, err := as.userRepo.GetByEmails(dbc, []string{email})
	if err != nil {
		return internalErr("load user", err)
	}
	if len(users) == 0 || users[0] == nil {
		as.log.Debug("password reset requested for unknown email")
		return nil
	}
	u := users[0]

	raw, err := newOpaqueToken()
	if err != nil {
		return internalErr("generate reset token", err)
	}
	if err := as.resetRepo.FullDeleteByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil {
		return internalErr("clear reset tokens", err)
	}
	if _, err := as.resetRepo.Create(dbc, []*types.PasswordResetToken{{
		UserID:    u.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: time.Now().UTC().Add(as.cfg.ResetTTL),
	}}); err != nil {
		return internalErr("store reset token", err)
	}
	if err := as.mail.SendPasswordReset(ctx, u, raw); err != nil {
		as.log.Warn("password reset mail not sent", "user_id", u.ID, "error", err)
	}
	return nil
}

func (as *authService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Token = strings.TrimSpace(in.Token)
	if err := validateInput(in); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), as.cfg.BcryptCost)
	if err != nil {
		return internalErr("hash password", err)
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		tok, err := as.resetRepo.GetByTokenHash(inner, hashToken(in.Token))
		if err != nil {
			return internalErr("load reset token", err)
		}
		now := time.Now().UTC()
		if tok == nil || !tok.Usable(now) {
			return apierr.Validation("reset_token_invalid", errors.New("reset link is invalid or expired"))
		}
		used, err := as.resetRepo.MarkUsed(inner, tok.ID, now)
		if err != nil {
			return internalErr("consume reset token", err)
		}
		if !used {
			return apierr.Validation("reset_token_invalid", errors.New("reset link is invalid or expired"))
		}
		if err := as.userRepo.UpdatePassword(inner, tok.UserID, string(hash)); err != nil {
			return internalErr("update password", err)
		}
		if err := as.userTokenRepo.FullDeleteByUserIDs(inner, []uuid.UUID{tok.UserID}); err != nil {
			return internalErr("revoke sessions", err)
		}
		as.log.Info("password reset", "user_id", tok.UserID)
		return nil
	})
}

func (as *authService) issueSession(dbc dbctx.Context, u *types.User) (*Session, error) {
	access, err := as.generateAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	row := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(as.cfg.RefreshTTL),
	}
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{row}); err != nil {
		return nil, fmt.Errorf("create user token: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(as.cfg.AccessTTL.Seconds()),
		User:         u,
	}, nil
}

func (as *authService) generateAccessToken(u *types.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Role: u.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecretKey))
}

func invalidCredentials() error {
	return apierr.Unauthorized("invalid_credentials", errors.New("invalid email or password"))
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
