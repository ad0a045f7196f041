package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type RegisterRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Phone    string         `json:"phone,omitempty"`
	Address  models.Address `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Address models.Address `json:"address"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type UserService struct {
	users      UserRepository
	cache      UserCache
	tokens     *auth.TokenIssuer
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

func NewUserService(users UserRepository, cache UserCache, tokens *auth.TokenIssuer, bcryptCost int, logger *zap.Logger, now Clock) *UserService {
	return &UserService{
		users:      users,
		cache:      cache,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.Named("users"),
		now:        now,
	}
}

// Register creates a regular user account and signs it in.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		return AuthResult{}, apperr.InvalidArgument("Name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return AuthResult{}, apperr.InvalidArgument("A valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return AuthResult{}, apperr.Newf(apperr.KindInvalidArgument, "Password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Phone:        req.Phone,
		Address:      req.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return AuthResult{}, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return s.signIn(user)
}

// Login checks the credentials. Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return AuthResult{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !auth.ComparePassword(user.PasswordHash, req.Password) {
		return AuthResult{}, apperr.Unauthorized("Invalid credentials")
	}
	return s.signIn(user)
}

func (s *UserService) signIn(user models.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	user.PasswordHash = ""
	return AuthResult{Token: token, User: user}, nil
}

// Me returns the session's user, from cache when possible.
func (s *UserService) Me(ctx context.Context, sess auth.Session) (models.User, error) {
	if !sess.Authenticated() {
		return models.User{}, apperr.Unauthorized("Not authorized")
	}

	if s.cache != nil {
		user, ok, err := s.cache.GetCachedUser(ctx, sess.UserID)
		if err != nil {
			s.logger.Warn("User cache read failed", zap.String("user_id", sess.UserID), zap.Error(err))
		} else if ok {
			return user, nil
		}
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""

	if s.cache != nil {
		if err := s.cache.CacheUser(ctx, user); err != nil {
			s.logger.Warn("User cache write failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, sess auth.Session, update ProfileUpdate) (models.User, error) {
	if !sess.Authenticated() {
		return models.User{}, apperr.Unauthorized("Not authorized")
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, err
	}
	if name := strings.TrimSpace(update.Name); name != "" {
		user.Name = name
	}
	user.Phone = update.Phone
	user.Address = update.Address
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return models.User{}, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user.ID); err != nil {
			s.logger.Warn("User cache invalidation failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) List(ctx context.Context, sess auth.Session) ([]models.User, error) {
	if !sess.IsAdmin() {
		return nil, apperr.Forbidden(errMsgAdminRequired)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// EnsureAdmin creates an administrator with the given credentials unless the email is
// already registered.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.now()
	return s.users.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
