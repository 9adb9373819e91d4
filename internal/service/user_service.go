package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"scribe/internal/auth"
	"scribe/internal/mail"
	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/repository"
)

// User-facing messages shared with the handlers.
const (
	MsgUsernameTaken = "Username already exists"
	MsgEmailTaken    = "Email already exists"
	MsgLoginFailed   = "Login unsuccessful. Please check email and password."
	MsgNoSuchAccount = "No account found with that email!"
	MsgInvalidToken  = "Invalid token!"
)

type UserService struct {
	users   repository.UserRepository
	tokens  *auth.TokenManager
	mailer  mail.Mailer
	baseURL string
	now     func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type UpdateAccountInput struct {
	UserID   string
	Username string
	Email    string
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	mailer mail.Mailer,
	baseURL string,
) *UserService {
	return &UserService{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Register creates an account after checking that the username and email
// are free. The store's unique indexes catch any race past the check.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.ensureUnique(ctx, "", in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hash,
		DateJoined: s.now().UTC(),
		Image:      models.DefaultImage,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user owning email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError(MsgLoginFailed)
	}
	ok, err := auth.CheckPassword(user.Password, password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewUnauthorizedError(MsgLoginFailed)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateAccount changes username and email. Each must stay unique unless
// unchanged.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, user.ID, in.Username, in.Email); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, user.ID, in.Username, in.Email); err != nil {
		return nil, err
	}

	// Cached feed pages carry the old author details.
	repository.InvalidateAuthor(ctx)

	user.Username = in.Username
	user.Email = in.Email
	return user, nil
}

// RequestPasswordReset mails a signed reset link to the account owning email.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewValidationError(MsgNoSuchAccount)
	}

	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	link := s.ResetLink(token)
	if err := s.mailer.Send(ctx, mail.PasswordReset(user.Email, link)); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "password reset mail failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// ResetLink is the absolute URL of the reset form for token.
func (s *UserService) ResetLink(token string) string {
	return s.baseURL + "/reset_password/" + token
}

// VerifyResetToken resolves a reset token to its user. Any failure is
// reported as an invalid token.
func (s *UserService) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.ParseReset(token)
	if err != nil {
		return nil, models.NewUnauthorizedError(MsgInvalidToken)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError(MsgInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

// ResetPassword verifies token and stores a new password hash.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	user, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns every user without password or storage id.
func (s *UserService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// ensureUnique rejects a username or email held by a user other than selfID.
func (s *UserService) ensureUnique(ctx context.Context, selfID, username, email string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return models.NewValidationError(MsgUsernameTaken)
	}

	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return models.NewValidationError(MsgEmailTaken)
	}
	return nil
}
