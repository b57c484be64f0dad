package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/acmduel/duelbot/internal/db"
	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

// DuelRepository provides data access for the Duel model. All multi-row
// state changes run inside a single transaction; gorm rolls the closure
// back on any returned error, so partial writes never become visible.
type DuelRepository struct {
	db *gorm.DB
}

// NewDuelRepository creates a new repository bound to the given DB connection.
func NewDuelRepository(database *gorm.DB) *DuelRepository {
	return &DuelRepository{db: database}
}

// ActiveByUser returns the user's Pending/Ongoing/ChangeProblem duel, or
// gorm.ErrRecordNotFound.
func (r *DuelRepository) ActiveByUser(ctx context.Context, qq int64) (*db.Duel, error) {
	var duel db.Duel
	err := r.db.WithContext(ctx).
		Where("(user1 = ? OR user2 = ?) AND status_kind <> ?", qq, qq, db.StatusFinished).
		First(&duel).Error
	if err != nil {
		return nil, err
	}
	return &duel, nil
}

// Create inserts a Pending duel.
//
// Behavior:
//   - The active-duel lookups for both users run inside the same
//     transaction as the insert, so two concurrent challenges cannot both
//     slip past the "one active duel per user" rule.
//   - Returns a state-conflict error when either side is already engaged.
func (r *DuelRepository) Create(ctx context.Context, duel *db.Duel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, qq := range []int64{duel.User1, duel.User2} {
			var existing db.Duel
			err := tx.
				Where("(user1 = ? OR user2 = ?) AND status_kind <> ?", qq, qq, db.StatusFinished).
				First(&existing).Error
			if err == nil {
				return apperr.Conflictf("user %d is already in a duel", qq)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		duel.StatusKind = db.StatusPending
		return tx.Create(duel).Error
	})
}

// Start moves a Pending duel to Ongoing with its assigned problem.
func (r *DuelRepository) Start(ctx context.Context, duel *db.Duel, problem judge.Problem) error {
	duel.SetProblem(problem)
	duel.StatusKind = db.StatusOngoing
	duel.StatusPayload = nil
	return r.db.WithContext(ctx).
		Model(duel).
		Select("problem_contest_id", "problem_index", "problem_rating", "status_kind", "status_payload").
		Updates(duel).Error
}

// Delete removes a duel row entirely (declined or cancelled before start).
func (r *DuelRepository) Delete(ctx context.Context, duel *db.Duel) error {
	return r.db.WithContext(ctx).Delete(duel).Error
}

// RequestChange flags the duel as waiting for the counterpart to confirm a
// problem swap.
func (r *DuelRepository) RequestChange(ctx context.Context, duel *db.Duel, requester int64) error {
	duel.StatusKind = db.StatusChangeProblem
	duel.StatusPayload = &requester
	return r.db.WithContext(ctx).
		Model(duel).
		Select("status_kind", "status_payload").
		Updates(duel).Error
}

// ApplyChange confirms a problem swap: new problem, back to Ongoing.
func (r *DuelRepository) ApplyChange(ctx context.Context, duel *db.Duel, problem judge.Problem) error {
	duel.SetProblem(problem)
	duel.StatusKind = db.StatusOngoing
	duel.StatusPayload = nil
	return r.db.WithContext(ctx).
		Model(duel).
		Select("problem_contest_id", "problem_index", "problem_rating", "status_kind", "status_payload").
		Updates(duel).Error
}

// Finish terminates the duel and applies both rating updates in one
// transaction.
//
// Behavior:
//   - loserSide is db.SideUser1 or db.SideUser2.
//   - The status write and the two user rating writes commit together;
//     any failure rolls all three back.
func (r *DuelRepository) Finish(ctx context.Context, duel *db.Duel, loserSide int64, rating1, rating2 int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		duel.StatusKind = db.StatusFinished
		duel.StatusPayload = &loserSide
		if err := tx.Model(duel).
			Select("status_kind", "status_payload").
			Updates(duel).Error; err != nil {
			return err
		}

		if err := tx.Model(&db.User{}).Where("qq = ?", duel.User1).
			Update("rating", rating1).Error; err != nil {
			return err
		}
		return tx.Model(&db.User{}).Where("qq = ?", duel.User2).
			Update("rating", rating2).Error
	})
}
