// Package store persists the per-student records behind the leaderboard.
package store

import (
	"context"
	"time"
)

// StudentRecord is everything kept for one student.
//
// Password is the student's portal password in plaintext. It has to stay
// recoverable because admin bulk refresh re-scrapes the portal on the
// student's behalf; this is an inherited, documented insecurity of the
// system, see the README.
type StudentRecord struct {
	Username string `json:"username"`
	District string `json:"district"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`

	// GPA and LastUpdated are either both nil (never fetched successfully)
	// or both set from the most recent successful fetch. A failed refresh
	// never clears them.
	GPA         *float64   `json:"gpa,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// AdminAccount is a locally managed account that can trigger bulk refreshes.
// Unlike student portal passwords, the admin password is only ever verified
// locally, so it is stored as a bcrypt hash.
type AdminAccount struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Name         string `json:"name,omitempty"`
}

// Store is the record store interface. Upsert replaces the record keyed by
// its username and persists synchronously before returning.
type Store interface {
	Get(ctx context.Context, username string) (StudentRecord, bool, error)
	Upsert(ctx context.Context, record StudentRecord) error
	All(ctx context.Context) ([]StudentRecord, error)
	GetAdmin(ctx context.Context, username string) (AdminAccount, bool, error)
}
