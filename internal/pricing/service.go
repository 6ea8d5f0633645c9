package pricing

import (
	"context"
	"time"
)

// QuoteRequest describes the block being priced.
type QuoteRequest struct {
	BuildingID string
	BasePrice  int64
	StartTime  time.Time
	EndTime    time.Time
}

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type service struct {
	rules          RuleStore
	commissionRate float64
}

func NewService(rules RuleStore, commissionRate float64) Service {
	return &service{rules: rules, commissionRate: commissionRate}
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	rules, err := s.rules.FindActive(ctx, req.BuildingID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	multiplier := 1.0
	rule := SelectRule(rules)
	if rule != nil {
		multiplier = rule.Multiplier
	}

	q, err := Compute(req.BasePrice, s.commissionRate, multiplier)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		id := rule.ID
		q.RuleID = &id
	}
	return &q, nil
}
