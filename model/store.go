package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store wraps the gorm handle with the operations the intake pipeline and
// the admin API need. Eviction deletes are hard deletes; retention is a
// storage-pressure control, not a trash bin.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertMessage(ctx context.Context, msg *Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *Store) UpdateMessageStatus(ctx context.Context, id uint64, status string) error {
	return s.db.WithContext(ctx).Model(&Message{}).Where("id = ?", id).
		Update("status", status).Error
}

func (s *Store) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Message{}).Count(&count).Error
	return count, err
}

func (s *Store) DeleteMessagesCreatedBefore(ctx context.Context, cutoff time.Time) error {
	return s.db.WithContext(ctx).Unscoped().
		Where("created_at < ?", cutoff).Delete(&Message{}).Error
}

// DeleteAllMessagesExceptNewest keeps the keep newest rows ranked by id
// descending and hard-deletes the rest. Ids are monotonic, so ranking by id
// is unambiguous where timestamps may tie.
func (s *Store) DeleteAllMessagesExceptNewest(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if keep == 0 {
		return s.db.WithContext(ctx).Unscoped().
			Where("id > 0").Delete(&Message{}).Error
	}
	var ids []uint64
	if err := s.db.WithContext(ctx).Model(&Message{}).Unscoped().
		Order("id DESC").Limit(keep).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) < keep {
		// Fewer rows than the keep target, nothing to evict.
		return nil
	}
	cut := ids[len(ids)-1]
	return s.db.WithContext(ctx).Unscoped().
		Where("id < ?", cut).Delete(&Message{}).Error
}

func (s *Store) FindMessage(ctx context.Context, id uint64) (*Message, error) {
	var msg Message
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) ListMessages(ctx context.Context) ([]Message, error) {
	var messages []Message
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&messages).Error
	return messages, err
}

// ClearAllMessages hard-deletes every message row and returns the counts
// before and after, for the admin clear endpoint.
func (s *Store) ClearAllMessages(ctx context.Context) (before, after int64, err error) {
	if before, err = s.CountMessages(ctx); err != nil {
		return 0, 0, err
	}
	if err = s.db.WithContext(ctx).Unscoped().
		Where("id > 0").Delete(&Message{}).Error; err != nil {
		return 0, 0, err
	}
	if after, err = s.CountMessages(ctx); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

func (s *Store) InsertAttachments(ctx context.Context, rows []Attachment) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *Store) FindAttachmentsByMessage(ctx context.Context, messageID uint64) ([]Attachment, error) {
	var rows []Attachment
	err := s.db.WithContext(ctx).Where("message_id = ?", messageID).Find(&rows).Error
	return rows, err
}

// FindAccountByAddressIncludingDeleted resolves an account by address,
// including soft-deleted rows. A missing account returns (nil, nil): no
// recipient is a valid state, not an error.
func (s *Store) FindAccountByAddressIncludingDeleted(ctx context.Context, address string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Unscoped().
		Where("email = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", address, err)
	}
	return &account, nil
}

func (s *Store) FindRoleByUserID(ctx context.Context, userID uint64) (*Role, error) {
	var role Role
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role for user %d: %w", userID, err)
	}
	return &role, nil
}

// QuerySettings fetches the switch row. Absence of the row means a fresh
// install; receiving defaults to on with every fanout switch off.
func (s *Store) QuerySettings(ctx context.Context) (Settings, error) {
	var setting Setting
	err := s.db.WithContext(ctx).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settings{Receive: true}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	return setting.Parsed(), nil
}
