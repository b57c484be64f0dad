package db

import (
	"time"

	"github.com/acmduel/duelbot/internal/judge"
)

// User is a chat-platform identity known to the duel engine. Rows are
// created lazily on first interaction and never deleted.
//
// Fields:
//   - QQ: platform identity, primary key.
//   - Rating: integer ELO, starts at 1500.
//   - CFHandle: bound judge handle; NULL until the binding handshake
//     succeeds.
//   - DailyScore: cumulative daily-problem score.
//   - LastDaily: date string (YYYY-MM-DD) of the last completed daily.
type User struct {
	QQ         int64   `gorm:"column:qq;primaryKey"`
	Rating     int     `gorm:"not null;default:1500"`
	CFHandle   *string `gorm:"column:cf_id;size:64;uniqueIndex"`
	DailyScore int64   `gorm:"not null;default:0"`
	LastDaily  string  `gorm:"size:10;not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bound reports whether the binding protocol has completed for this user.
func (u *User) Bound() bool {
	return u.CFHandle != nil && *u.CFHandle != ""
}

// StatusKind is the discriminant of the duel status union. The payload
// column carries the variant data: the requesting user id for
// StatusChangeProblem, the losing side for StatusFinished.
type StatusKind int8

const (
	StatusPending StatusKind = iota
	StatusOngoing
	StatusChangeProblem
	StatusFinished
)

// Loser side codes stored in the status payload of a finished duel.
const (
	SideUser1 int64 = 1
	SideUser2 int64 = 2
)

// Duel is one challenge between two users.
//
// Indexes:
//   - idx_duel_user1_kind / idx_duel_user2_kind back the "is this user in
//     an active duel" lookups.
//
// The problem columns are NULL while the duel is still Pending; a problem
// is bound when the challenged side accepts.
type Duel struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	User1        int64  `gorm:"not null;index:idx_duel_user1_kind,priority:1"`
	User2        int64  `gorm:"not null;index:idx_duel_user2_kind,priority:1"`
	TargetRating int    `gorm:"not null"`
	Tags         string `gorm:"size:512;not null;default:''"`

	ProblemContestID *int64
	ProblemIndex     *string `gorm:"size:8"`
	ProblemRating    *int

	StatusKind    StatusKind `gorm:"not null;index:idx_duel_user1_kind,priority:2;index:idx_duel_user2_kind,priority:2"`
	StatusPayload *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the duel still blocks both users from entering
// another one.
func (d *Duel) Active() bool {
	return d.StatusKind != StatusFinished
}

// Involves reports whether qq plays either side.
func (d *Duel) Involves(qq int64) bool {
	return d.User1 == qq || d.User2 == qq
}

// Opponent returns the other side of the duel.
func (d *Duel) Opponent(qq int64) int64 {
	if d.User1 == qq {
		return d.User2
	}
	return d.User1
}

// Problem reconstructs the assigned problem, if any. Tags are not stored;
// only identity and rating matter once the duel is running.
func (d *Duel) Problem() (judge.Problem, bool) {
	if d.ProblemContestID == nil || d.ProblemIndex == nil {
		return judge.Problem{}, false
	}
	p := judge.Problem{ContestID: *d.ProblemContestID, Index: *d.ProblemIndex}
	if d.ProblemRating != nil {
		p.Rating = *d.ProblemRating
	}
	return p, true
}

// SetProblem binds a problem to the duel.
func (d *Duel) SetProblem(p judge.Problem) {
	contestID, index, rating := p.ContestID, p.Index, p.Rating
	d.ProblemContestID = &contestID
	d.ProblemIndex = &index
	d.ProblemRating = &rating
}

// DailyProblem pins one problem per calendar date.
type DailyProblem struct {
	Date      string `gorm:"primaryKey;size:10"`
	ContestID int64  `gorm:"not null"`
	Index     string `gorm:"column:idx;size:8;not null"`
	Rating    int    `gorm:"not null"`
	CreatedAt time.Time
}

// Problem returns the pinned problem.
func (dp *DailyProblem) Problem() judge.Problem {
	return judge.Problem{ContestID: dp.ContestID, Index: dp.Index, Rating: dp.Rating}
}
