// Package store persists diagnosis records and the users they belong to.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/skintriage/internal/triage"
)

var ErrNotFound = errors.New("record not found")

const (
	StatusPending   = "pending"
	StatusReviewed  = "reviewed"
	StatusCompleted = "completed"
)

// Record is one completed diagnosis run. Only Status and DoctorNotes change
// after creation.
type Record struct {
	ID            uuid.UUID         `json:"id"`
	UserID        *uuid.UUID        `json:"userId,omitempty"`
	ImageURL      string            `json:"imageUrl"`
	ImageKey      string            `json:"imageKey,omitempty"`
	Symptoms      triage.SymptomSet `json:"symptoms"`
	Result        triage.Result     `json:"aiDiagnosis"`
	Provenance    triage.Provenance `json:"aiMode"`
	FailureDetail string            `json:"aiError,omitempty"`
	Model         string            `json:"model,omitempty"`
	Status        string            `json:"status"`
	DoctorNotes   string            `json:"doctorNotes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Age            *int      `json:"age,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	MedicalHistory []string  `json:"medicalHistory"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error)
	UpdateReview(ctx context.Context, id uuid.UUID, status, notes string) error
}

type UserRepository interface {
	// FindOrCreateByEmail returns the stored user with u.Email, creating it
	// from u when none exists.
	FindOrCreateByEmail(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// ValidStatus reports whether status is a known review status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusReviewed, StatusCompleted:
		return true
	}
	return false
}
