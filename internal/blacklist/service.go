package blacklist

import (
	"context"

	"go.uber.org/zap"
)

// Checker is the admission gate consulted before any block is touched.
type Checker interface {
	Check(ctx context.Context, buildingID string, s Subject) error
}

type checker struct {
	repo   Repository
	hasher *Hasher
	log    *zap.Logger
}

func NewChecker(repo Repository, hasher *Hasher, log *zap.Logger) Checker {
	return &checker{repo: repo, hasher: hasher, log: log}
}

func (c *checker) Check(ctx context.Context, buildingID string, s Subject) error {
	matches, err := c.repo.FindMatches(ctx, buildingID, c.hasher.Probe(s))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	// The reason is for operators only; callers get the generic error.
	c.log.Info("admission blocked",
		zap.String("building_id", buildingID),
		zap.String("entry_id", matches[0].EntryID),
		zap.Bool("global", matches[0].Global),
		zap.String("reason", matches[0].Reason),
	)
	return ErrBlocked
}
