package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/acmduel/duelbot/internal/db"
)

// UserRepository provides data access for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get fetches a user by platform id.
func (r *UserRepository) Get(ctx context.Context, qq int64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "qq = ?", qq).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate fetches a user, creating the row on first interaction.
//
// Behavior:
//   - A fresh row starts at rating 1500 with no bound handle.
//   - Users are never deleted, so the row survives forever after.
func (r *UserRepository) GetOrCreate(ctx context.Context, qq int64) (*db.User, error) {
	user, err := r.Get(ctx, qq)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := db.User{QQ: qq, Rating: 1500}
	if err := r.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// BindHandle persists the judge handle after a successful handshake.
func (r *UserRepository) BindHandle(ctx context.Context, qq int64, handle string) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("qq = ?", qq).
		Update("cf_id", handle).Error
}

// TopByRating returns the rating board, best first.
func (r *UserRepository) TopByRating(ctx context.Context, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Order("rating DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// TopByDailyScore returns the daily-problem board, best first.
func (r *UserRepository) TopByDailyScore(ctx context.Context, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Order("daily_score DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// AwardDaily credits today's daily problem inside one transaction: the
// score increment and the last-completed date move together or not at all.
func (r *UserRepository) AwardDaily(ctx context.Context, qq int64, points int64, date string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db.User{}).
			Where("qq = ?", qq).
			Updates(map[string]interface{}{
				"daily_score": gorm.Expr("daily_score + ?", points),
				"last_daily":  date,
			}).Error
	})
}
