package storage

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"library_auth/internal/models"
)

// MemoryStorage is an in-process Storage used in tests and local runs
// without Postgres.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]models.User
	hashes map[uuid.UUID]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[uuid.UUID]models.User),
		hashes: make(map[uuid.UUID]string),
	}
}

func (m *MemoryStorage) GetCredentialsByEmail(_ context.Context, email string) (models.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, user := range m.users {
		if user.Email == email {
			return models.Credentials{UserID: id, PasswordHash: m.hashes[id]}, nil
		}
	}

	return models.Credentials{}, ErrUserNotFound
}

func (m *MemoryStorage) GetUserByID(_ context.Context, userID uuid.UUID) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}

	return user, nil
}

func (m *MemoryStorage) CreateUser(_ context.Context, userName, email, passwordHash string, role models.Role) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			return uuid.Nil, ErrDuplicateEmail
		}
		if user.UserName == userName {
			return uuid.Nil, ErrDuplicateUserName
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	m.users[id] = models.User{
		ID:        id,
		UserName:  userName,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.hashes[id] = passwordHash

	return id, nil
}

func (m *MemoryStorage) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}

	return users, nil
}

func (m *MemoryStorage) UpdateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	for id, other := range m.users {
		if id == user.ID {
			continue
		}
		if other.Email == user.Email {
			return ErrDuplicateEmail
		}
		if other.UserName == user.UserName {
			return ErrDuplicateUserName
		}
	}

	current.UserName = user.UserName
	current.Email = user.Email
	current.Role = user.Role
	current.UpdatedAt = time.Now()
	m.users[user.ID] = current

	return nil
}

func (m *MemoryStorage) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	now := time.Now()
	user.PasswordChangedAt = &now
	user.UpdatedAt = now
	m.users[userID] = user
	m.hashes[userID] = passwordHash

	return nil
}

func (m *MemoryStorage) DeleteUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}

	delete(m.users, userID)
	delete(m.hashes, userID)

	return nil
}

func (m *MemoryStorage) Close() {}

// SetPasswordChangedAt overrides the change timestamp directly; tests
// use it to place the timestamp before or after token issuance.
func (m *MemoryStorage) SetPasswordChangedAt(userID uuid.UUID, changedAt *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return
	}
	user.PasswordChangedAt = changedAt
	m.users[userID] = user
}
