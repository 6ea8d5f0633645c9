package payout

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(apperror.KindNotFound, "payout_not_found", "payout not found")
	ErrAlreadyExists    = apperror.New(apperror.KindConflict, "payout_exists", "payout already exists")
	ErrMissingReference = apperror.New(apperror.KindConflict, "reference_missing", "referenced row no longer exists")
)

// Outcome tells the caller what a batch step did. None of them is an error.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeExists     Outcome = "exists"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeNoActivity Outcome = "no_activity"
)

// Payout aggregates one building's paid bookings over one period.
type Payout struct {
	ID               string
	BuildingID       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	BookingCount     int
	GrossAmount      int64
	CommissionAmount int64
	NetAmount        int64
	CreatedAt        time.Time
}

type Commission struct {
	ID        string
	PayoutID  string
	Amount    int64
	CreatedAt time.Time
}

// Totals is the raw aggregate a payout is built from.
type Totals struct {
	BookingCount int
	Gross        int64
	Commission   int64
}

type RunResult struct {
	BuildingID string
	Payout     *Payout
	Commission *Commission
	Outcome    Outcome
}

type CommissionResult struct {
	Commission *Commission
	Outcome    Outcome
}

// Period returns the day containing t, in t's location.
func Period(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
