// Package consultation schedules follow-up consultations with a
// dermatologist. Scheduling is simulated: requests are acknowledged and kept
// in memory, and the doctor directory is static.
package consultation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrMissingDiagnosis = errors.New("diagnosisId is required")

type Doctor struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	Experience string  `json:"experience"`
	Rating     float64 `json:"rating"`
	Available  bool    `json:"available"`
}

type Request struct {
	DiagnosisID       string `json:"diagnosisId"`
	PreferredDateTime string `json:"preferredDateTime"`
	Notes             string `json:"notes"`
}

type Booking struct {
	ConsultationID string    `json:"consultationId"`
	DiagnosisID    string    `json:"diagnosisId"`
	ScheduledTime  string    `json:"scheduledTime"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Doctors returns the dermatologists offered for consultation.
func Doctors() []Doctor {
	return []Doctor{
		{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Dermatology", Experience: "10 years", Rating: 4.8, Available: true},
		{ID: 2, Name: "Dr. Michael Chen", Specialty: "Dermatology", Experience: "8 years", Rating: 4.7, Available: true},
	}
}

type Scheduler struct {
	mu       sync.Mutex
	bookings map[string]Booking
	now      func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{bookings: make(map[string]Booking), now: time.Now}
}

func (s *Scheduler) Schedule(_ context.Context, req Request) (Booking, error) {
	if req.DiagnosisID == "" {
		return Booking{}, ErrMissingDiagnosis
	}

	b := Booking{
		ConsultationID: "cons_" + uuid.NewString(),
		DiagnosisID:    req.DiagnosisID,
		ScheduledTime:  req.PreferredDateTime,
		Notes:          req.Notes,
		CreatedAt:      s.now().UTC(),
	}

	s.mu.Lock()
	s.bookings[b.ConsultationID] = b
	s.mu.Unlock()
	return b, nil
}

func (s *Scheduler) Get(id string) (Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}
