package block

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(apperror.KindNotFound, "block_not_found", "block not found")

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
)

// Block is one spot over one contiguous time window, the unit of reservation.
type Block struct {
	ID         string
	SpotID     string
	SpotLabel  string
	BuildingID string
	StartTime  time.Time
	EndTime    time.Time
	BasePrice  int64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps reports whether b and [start, end) share any instant.
func (b *Block) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
