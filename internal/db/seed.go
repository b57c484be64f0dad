package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo duelists.
//
// Behavior:
//  1. Clears `duels`, `users` and `daily_problems`.
//  2. Creates 12 users; the first 8 carry a bound judge handle.
//  3. Generates a handful of finished duels with plausible rating drift.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"duels", "users", "daily_problems"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if db.Dialector.Name() == "sqlite" {
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'duels'")
	}

	log.Println("Cleared existing data")

	for i := 1; i <= 12; i++ {
		user := User{
			QQ:     int64(10000 + i),
			Rating: 1500 + r.Intn(9)*50 - 200,
		}
		if i <= 8 {
			handle := fmt.Sprintf("duelist_%d", i)
			user.CFHandle = &handle
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 12 users.")

	// A few finished duels between bound users.
	for i := 0; i < 5; i++ {
		u1 := int64(10001 + r.Intn(8))
		u2 := int64(10001 + r.Intn(8))
		if u1 == u2 {
			continue
		}
		loser := SideUser2
		if r.Intn(2) == 0 {
			loser = SideUser1
		}
		contestID := int64(1500 + r.Intn(600))
		index := "A"
		rating := 800 + r.Intn(10)*100
		duel := Duel{
			User1:            u1,
			User2:            u2,
			TargetRating:     rating,
			ProblemContestID: &contestID,
			ProblemIndex:     &index,
			ProblemRating:    &rating,
			StatusKind:       StatusFinished,
			StatusPayload:    &loser,
		}
		if err := db.Create(&duel).Error; err != nil {
			return fmt.Errorf("failed to seed duel: %w", err)
		}
	}

	return nil
}
