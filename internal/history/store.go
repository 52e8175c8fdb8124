package history

import (
	"context"
	"errors"

	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxListLimit = 500

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Entry{})
}

func (s *Store) Save(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListBySession returns a session's entries oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var entries []*Entry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var entries []*Entry
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *Store) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Entry{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}
