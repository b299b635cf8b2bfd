package session

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sessionToken is the persisted auth token. There should only ever be one
// row in this table; the token is the single piece of client state that
// survives a restart. Everything else is rebuilt from the backend.
type sessionToken struct {
	gorm.Model
	Token string `gorm:"not null"`
}

// Store persists the session token across restarts.
type Store struct {
	db *gorm.DB
}

// Open creates the session database connection and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&sessionToken{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save replaces the persisted token.
func (s *Store) Save(token string) error {
	var row sessionToken
	err := s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = sessionToken{Token: token}
		if err := s.db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save session token: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session row: %w", err)
	}

	if err := s.db.Model(&row).Update("token", token).Error; err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}
	return nil
}

// Load returns the persisted token, or "" when none has been saved.
func (s *Store) Load() (string, error) {
	var row sessionToken
	err := s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session token: %w", err)
	}
	return row.Token, nil
}

// Delete removes any persisted token. Called on logout.
func (s *Store) Delete() error {
	if err := s.db.Where("1 = 1").Delete(&sessionToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}
