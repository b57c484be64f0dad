package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acmduel/duelbot/internal/db"
)

// DailyProblemRepository pins one problem per calendar date.
type DailyProblemRepository struct {
	db *gorm.DB
}

func NewDailyProblemRepository(database *gorm.DB) *DailyProblemRepository {
	return &DailyProblemRepository{db: database}
}

// Get returns the problem pinned for the date, or gorm.ErrRecordNotFound.
func (r *DailyProblemRepository) Get(ctx context.Context, date string) (*db.DailyProblem, error) {
	var dp db.DailyProblem
	if err := r.db.WithContext(ctx).First(&dp, "date = ?", date).Error; err != nil {
		return nil, err
	}
	return &dp, nil
}

// Set pins the problem for the date. The date is the primary key, so a
// concurrent loser of the selection race fails here and re-reads instead.
func (r *DailyProblemRepository) Set(ctx context.Context, dp *db.DailyProblem) error {
	return r.db.WithContext(ctx).Create(dp).Error
}
