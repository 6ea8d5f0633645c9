package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
)

const expiryBatchSize = 100

func (s *service) ExpirePending(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-ttl)
	ids, err := s.repo.ListExpiredPending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		// Only pending bookings: a webhook may confirm one in the meantime.
		_, err := s.cancel(ctx, id, auth.System(), "expired", []Status{StatusPending})
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrInvalidState):
			s.log.Debug("pending booking settled before expiry", zap.String("booking_id", id))
		default:
			s.log.Error("failed to expire booking", zap.String("booking_id", id), zap.Error(err))
		}
	}
	return n, nil
}

// ExpiryWorker periodically cancels bookings that stayed pending past their TTL.
type ExpiryWorker struct {
	svc      Service
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewExpiryWorker(svc Service, ttl, interval time.Duration, log *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpiryWorker{
		svc:      svc,
		ttl:      ttl,
		interval: interval,
		log:      log.With(zap.String("component", "expiry_worker")),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the scan loop. A zero TTL disables the worker.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	if w.ttl <= 0 {
		w.log.Info("pending booking expiry disabled")
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("expiry worker already running")
	}
	w.running = true

	w.log.Info("starting expiry worker", zap.Duration("ttl", w.ttl), zap.Duration("interval", w.interval))
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("expiry worker stopped")
}

func (w *ExpiryWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *ExpiryWorker) scan(ctx context.Context) {
	n, err := w.svc.ExpirePending(ctx, w.ttl)
	if err != nil {
		w.log.Error("expiry scan failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("expired pending bookings", zap.Int("count", n))
	}
}
