package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbook/internal/auth"
	"travelbook/internal/config"
	"travelbook/internal/database"
	"travelbook/internal/domain"
	"travelbook/internal/events"
	"travelbook/internal/models"
	"travelbook/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	userPhotoPrefix    = "user"
	maxFeedbackLength  = 2000
	loginRateKeyPrefix = "login:"
)

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ProfileUpdate is the profile edit form.
type ProfileUpdate struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Phone    string `json:"phonenumber"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
}

// PasswordChange is the change password form.
type PasswordChange struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldpassword"`
	NewPassword string `json:"newpassword"`
}

type UserService struct {
	repo       domain.Repository
	sessions   domain.SessionRepository
	tokens     *auth.TokenManager
	photos     domain.PhotoStore
	eventBus   domain.EventPublisher
	cfg        config.AuthConfig
	logger     *zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewUserService(
	repo domain.Repository,
	sessions domain.SessionRepository,
	tokens *auth.TokenManager,
	photos domain.PhotoStore,
	eventBus domain.EventPublisher,
	cfg config.AuthConfig,
	logger *zerolog.Logger,
) *UserService {
	return &UserService{
		repo:       repo,
		sessions:   sessions,
		tokens:     tokens,
		photos:     photos,
		eventBus:   eventBus,
		cfg:        cfg,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates an account. Only admins may create other admins; an
// anonymous caller always gets the user role.
func (s *UserService) Register(ctx context.Context, actor *auth.Claims, form validation.Registration) (*models.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	role := strings.TrimSpace(form.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleAdmin && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	hash, err := s.hashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(form.Username),
		Name:         strings.TrimSpace(form.Name),
		Email:        strings.TrimSpace(form.Email),
		PasswordHash: hash,
		Gender:       strings.TrimSpace(form.Gender),
		Phone:        strings.TrimSpace(form.Phone),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	var by string
	if actor != nil {
		by = actor.Username
	}
	s.logger.Info().Str("username", user.Username).Str("role", role).Msg("user registered")
	s.publish(events.EventUserRegistered, user, by)
	return user, nil
}

// Login checks the password and issues a session token. Attempts are
// throttled per username.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.sessions != nil {
		allowed, err := s.sessions.CheckRateLimit(ctx, loginRateKeyPrefix+username, s.cfg.LoginAttempts, s.cfg.LoginWindow)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("login rate limit check failed")
		} else if !allowed {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Authenticate verifies a bearer token and rejects revoked sessions.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, auth.ErrTokenRevoked
		}
	}

	// токен переживает удаление пользователя и смену роли, сверяем с базой
	user, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}
	if user.Username != claims.Username || user.Role != claims.Role {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the session until its natural expiry.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return ErrUnauthorized
	}
	ttl := claims.TTL(s.now())
	if ttl <= 0 || s.sessions == nil {
		return nil
	}
	return s.sessions.RevokeToken(ctx, claims.ID, ttl)
}

func (s *UserService) LoggedUser(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *auth.Claims, form ProfileUpdate) (*models.User, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" && actor != nil {
		username = actor.Username
	}
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if email := strings.TrimSpace(form.Email); email != "" {
		if err := validation.Email(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if name := strings.TrimSpace(form.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(form.Phone); phone != "" {
		user.Phone = phone
	}
	if gender := strings.TrimSpace(form.Gender); gender != "" {
		user.Gender = gender
	}

	if err := s.repo.UpdateUserProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword requires the current password. A supplied email must match
// the account.
func (s *UserService) ChangePassword(ctx context.Context, actor *auth.Claims, form PasswordChange) error {
	if actor == nil {
		return ErrUnauthorized
	}

	user, err := s.repo.GetUserByUsername(ctx, actor.Username)
	if err != nil {
		return err
	}
	if email := strings.TrimSpace(form.Email); email != "" && !strings.EqualFold(email, user.Email) {
		return invalid("email", "email does not match the account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.OldPassword)); err != nil {
		return invalid("oldpassword", "current password is incorrect")
	}
	if err := validation.Password(form.NewPassword); err != nil {
		return err
	}

	hash, err := s.hashPassword(form.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, user.Username, hash)
}

// UploadPhoto replaces the profile photo of the caller.
func (s *UserService) UploadPhoto(ctx context.Context, actor *auth.Claims, data []byte) (string, error) {
	if actor == nil {
		return "", ErrUnauthorized
	}
	if s.photos == nil {
		return "", errors.New("photo storage is not configured")
	}
	if len(data) == 0 {
		return "", invalid("photo", "photo is required")
	}

	user, err := s.repo.GetUserByUsername(ctx, actor.Username)
	if err != nil {
		return "", err
	}

	name, err := s.photos.SaveImage(ctx, userPhotoPrefix, data)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	if err := s.repo.UpdateUserPhoto(ctx, user.Username, name); err != nil {
		s.deletePhoto(ctx, name)
		return "", err
	}
	s.deletePhoto(ctx, user.Photo)
	return name, nil
}

func (s *UserService) RemovePhoto(ctx context.Context, actor *auth.Claims, username string) error {
	username = strings.TrimSpace(username)
	if username == "" && actor != nil {
		username = actor.Username
	}
	if err := requireOwner(actor, username); err != nil {
		return err
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.Photo == "" {
		return nil
	}
	if err := s.repo.UpdateUserPhoto(ctx, username, ""); err != nil {
		return err
	}
	s.deletePhoto(ctx, user.Photo)
	return nil
}

func (s *UserService) AddFeedback(ctx context.Context, actor *auth.Claims, username, message string) (*models.Feedback, error) {
	username = strings.TrimSpace(username)
	if username == "" && actor != nil {
		username = actor.Username
	}
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("feedback", "feedback is required")
	}
	if len(message) > maxFeedbackLength {
		return nil, invalid("feedback", fmt.Sprintf("feedback must be at most %d characters", maxFeedbackLength))
	}

	fb := &models.Feedback{
		ID:       uuid.NewString(),
		Username: username,
		Message:  message,
	}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *UserService) DeleteFeedback(ctx context.Context, actor *auth.Claims, id string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	fb, err := s.repo.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(actor, fb.Username); err != nil {
		return err
	}
	return s.repo.DeleteFeedback(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, actor *auth.Claims) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *UserService) ListFeedback(ctx context.Context, actor *auth.Claims) ([]models.Feedback, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListFeedback(ctx)
}

// UserTours lists the bookings of any user for admins.
func (s *UserService) UserTours(ctx context.Context, actor *auth.Claims, username string) ([]models.Booking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.GetUserBookings(ctx, username)
}

// DeleteUser removes an account. Admins cannot delete themselves, so at
// least one admin always remains.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.Claims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.Subject {
		return invalid("id", "admins cannot delete their own account")
	}

	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	s.deletePhoto(ctx, user.Photo)

	s.logger.Info().Str("username", user.Username).Str("actor", actor.Username).Msg("user deleted")
	s.publish(events.EventUserDeleted, user, actor.Username)
	return nil
}

// EnsureBootstrapAdmin creates the configured admin when no admin exists yet.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context) error {
	admin := s.cfg.BootstrapAdmin
	if admin.Username == "" {
		return nil
	}

	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	form := validation.Registration{
		Username:          admin.Username,
		Name:              admin.Username,
		Email:             admin.Email,
		Password:          admin.Password,
		ConfirmedPassword: admin.Password,
		Role:              models.RoleAdmin,
	}
	bootstrap := &auth.Claims{Username: "bootstrap", Role: models.RoleAdmin}
	if _, err := s.Register(ctx, bootstrap, form); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	s.logger.Info().Str("username", admin.Username).Msg("bootstrap admin created")
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) deletePhoto(ctx context.Context, name string) {
	if s.photos == nil || name == "" {
		return
	}
	if err := s.photos.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("photo", name).Msg("failed to delete photo")
	}
}

func (s *UserService) publish(eventType string, user *models.User, actor string) {
	if s.eventBus == nil {
		return
	}
	payload := events.UserEventPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Actor:    actor,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("username", user.Username).Msg("publish event error")
	}
}
