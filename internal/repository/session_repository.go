package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"calendar-planner/internal/model"
	"calendar-planner/internal/session"
)

// SessionRepository is the relational session.Store.
type SessionRepository struct {
	db *gorm.DB
}

var _ session.Store = (*SessionRepository)(nil)

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Load(ctx context.Context, key string) (model.Session, error) {
	var sess model.Session
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&sess).Error
	switch {
	case err == nil:
		return sess, nil
	case err == gorm.ErrRecordNotFound:
		return model.Session{}, session.ErrNoSession
	default:
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}
}

// Save inserts the session or overwrites the one stored under the same key.
func (r *SessionRepository) Save(ctx context.Context, sess model.Session) error {
	sess.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&sess).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ListAll returns every stored session, used for scheduled agenda pushes.
func (r *SessionRepository) ListAll(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).Order("`key` ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
