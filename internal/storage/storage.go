package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"library_auth/internal/models"
)

const usersTable = "users"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("user already exists with this email")
	ErrDuplicateUserName = errors.New("username is already taken")
)

// Storage is the user store consumed by the auth core. Reads carry no
// side effects; UpdatePassword is the single write that must keep the
// hash and the password-changed-at timestamp consistent.
type Storage interface {
	// GetCredentialsByEmail fetches the otherwise-hidden password hash
	// for a login attempt.
	GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	CreateUser(ctx context.Context, userName, email, passwordHash string, role models.Role) (uuid.UUID, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	// UpdatePassword stores a new hash and refreshes password_changed_at
	// in the same statement, since session validity depends on the two
	// staying consistent.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	Close()
}

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(context.Background(), dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

func (p *PostgresStorage) GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error) {
	const op = "storage.GetCredentialsByEmail"

	var cred models.Credentials
	query := fmt.Sprintf("SELECT id, password_hash FROM %s WHERE email=$1;", usersTable)

	err := p.db.QueryRow(ctx, query, email).Scan(&cred.UserID, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cred, ErrUserNotFound
		}
		return cred, fmt.Errorf("%s: %w", op, err)
	}

	return cred, nil
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "storage.GetUserByID"

	var user models.User
	query := fmt.Sprintf(`SELECT id, user_name, email, user_role, password_changed_at, created_at, updated_at
	FROM %s WHERE id=$1;`, usersTable)

	err := p.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.Role,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) CreateUser(ctx context.Context, userName, email, passwordHash string, role models.Role) (uuid.UUID, error) {
	const op = "storage.CreateUser"

	var userID uuid.UUID
	query := fmt.Sprintf(`INSERT INTO %s(user_name, email, password_hash, user_role)
	VALUES ($1, $2, $3, $4) RETURNING id;`, usersTable)

	err := p.db.QueryRow(ctx, query, userName, email, passwordHash, role).Scan(&userID)
	if err != nil {
		return userID, fmt.Errorf("%s: %w", op, duplicateErr(err))
	}

	return userID, nil
}

func (p *PostgresStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"

	var users []models.User
	query := fmt.Sprintf(`SELECT id, user_name, email, user_role, password_changed_at, created_at, updated_at
	FROM %s ORDER BY created_at;`, usersTable)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return users, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var user models.User

		err := rows.Scan(
			&user.ID,
			&user.UserName,
			&user.Email,
			&user.Role,
			&user.PasswordChangedAt,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return users, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return users, nil
}

func (p *PostgresStorage) UpdateUser(ctx context.Context, user models.User) error {
	const op = "storage.UpdateUser"

	query := fmt.Sprintf(`UPDATE %s SET user_name=$1, email=$2, user_role=$3, updated_at=now()
	WHERE id=$4;`, usersTable)

	tag, err := p.db.Exec(ctx, query, user.UserName, user.Email, user.Role, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, duplicateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (p *PostgresStorage) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	const op = "storage.UpdatePassword"

	query := fmt.Sprintf(`UPDATE %s SET password_hash=$1, password_changed_at=now(), updated_at=now()
	WHERE id=$2;`, usersTable)

	tag, err := p.db.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (p *PostgresStorage) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.DeleteUser"

	query := fmt.Sprintf("DELETE FROM %s WHERE id=$1;", usersTable)

	tag, err := p.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}

// duplicateErr maps unique-constraint violations onto the storage
// sentinels so the service layer can answer with the right message.
func duplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_user_name_key":
		return ErrDuplicateUserName
	}

	return err
}
