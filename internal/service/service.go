package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"

	"library_auth/internal/auth"
	"library_auth/internal/models"
	"library_auth/internal/storage"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so a caller cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserGone           = errors.New("user belonging to token no longer exists")
	ErrSessionSuperseded  = errors.New("session superseded by password change")
	ErrSelfDeletion       = errors.New("cannot delete own account")
)

// Token failure causes, re-exported so callers need not depend on the
// codec package to classify Authenticate errors.
var (
	ErrTokenExpired   = auth.ErrTokenExpired
	ErrTokenMalformed = auth.ErrTokenMalformed
	ErrTokenInvalid   = auth.ErrTokenInvalid
)

// UpdateUserParams carries the optional fields of a user update.
// Empty strings leave the current value in place. Role is applied only
// when the caller is an admin.
type UpdateUserParams struct {
	UserName string
	Email    string
	Password string
	Role     models.Role
}

type Service interface {
	Login(ctx context.Context, email, password string) (string, models.PublicUser, error)
	Authenticate(ctx context.Context, rawToken string) (models.User, error)

	CreateUser(ctx context.Context, userName, email, password string, role models.Role) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, caller models.User, userID uuid.UUID, params UpdateUserParams) (models.User, error)
	DeleteUser(ctx context.Context, caller models.User, userID uuid.UUID) error

	TokenCodec() *auth.TokenCodec
}

type service struct {
	storage storage.Storage
	codec   *auth.TokenCodec
}

func NewService(st storage.Storage, codec *auth.TokenCodec) *service {
	return &service{
		storage: st,
		codec:   codec,
	}
}

func (s *service) TokenCodec() *auth.TokenCodec {
	return s.codec
}

// Login verifies the credentials against the stored hash and mints a
// bearer token for the account. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *service) Login(ctx context.Context, email, password string) (string, models.PublicUser, error) {
	const op = "service.Login"

	if email == "" || password == "" {
		return "", models.PublicUser{}, ErrMissingCredentials
	}

	cred, err := s.storage.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", models.PublicUser{}, ErrInvalidCredentials
		}
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPassword(password, cred.PasswordHash); !ok {
		return "", models.PublicUser{}, ErrInvalidCredentials
	}

	user, err := s.storage.GetUserByID(ctx, cred.UserID)
	if err != nil {
		// Row gone between the two lookups reads as a failed login, not
		// a server error.
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", models.PublicUser{}, ErrInvalidCredentials
		}
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.codec.Issue(user.ID, user.Role)
	if err != nil {
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, user.Public(), nil
}

// Authenticate verifies a bearer token against live state: signature
// and expiry first, then subject existence, then the password-change
// check. The returned identity is the store's current record, not the
// token's snapshot.
func (s *service) Authenticate(ctx context.Context, rawToken string) (models.User, error) {
	const op = "service.Authenticate"

	claims, err := s.codec.Parse(rawToken)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.storage.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserGone
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !auth.SessionStillValid(claims.IssuedAt.Time, user.PasswordChangedAt) {
		return models.User{}, ErrSessionSuperseded
	}

	return user, nil
}

func (s *service) CreateUser(ctx context.Context, userName, email, password string, role models.Role) (models.User, error) {
	const op = "service.CreateUser"

	if role == "" {
		role = models.RoleUser
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.CreateUser(ctx, userName, email, passwordHash, role)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "service.GetUserByID"

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service.ListUsers"

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// UpdateUser applies the given changes to an account. A password change
// goes through UpdatePassword so the hash and password_changed_at move
// together, which is what invalidates tokens minted before the change.
func (s *service) UpdateUser(ctx context.Context, caller models.User, userID uuid.UUID, params UpdateUserParams) (models.User, error) {
	const op = "service.UpdateUser"

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if params.UserName != "" {
		user.UserName = params.UserName
	}
	if params.Email != "" {
		user.Email = params.Email
	}
	if params.Role != "" && caller.Role == models.RoleAdmin {
		user.Role = params.Role
	}

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if params.Password != "" {
		passwordHash, err := auth.HashPassword(params.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.storage.UpdatePassword(ctx, userID, passwordHash); err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	user, err = s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *service) DeleteUser(ctx context.Context, caller models.User, userID uuid.UUID) error {
	const op = "service.DeleteUser"

	if caller.ID == userID {
		return ErrSelfDeletion
	}

	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
