package pricing

import (
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"
)

var ErrInvalidInput = apperror.New(apperror.KindInvalidRequest, "invalid_pricing_input", "invalid pricing input")

// Rule is a time-bounded yield multiplier scoped to a building.
type Rule struct {
	ID         int64
	BuildingID string
	Name       string
	Priority   int
	Multiplier float64
	StartsAt   time.Time
	EndsAt     time.Time
}

// Quote is the priced result for one block. Amounts are in minor units.
type Quote struct {
	Total      int64
	Commission int64
	Multiplier float64
	RuleID     *int64
}
