package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nekogravitycat/visitor-parking-backend/internal/blacklist"
	"github.com/nekogravitycat/visitor-parking-backend/internal/block"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pricing"
)

// world is an in-memory database shared by the fake repositories. WithTx
// serializes transactions and restores a snapshot when fn fails.
type world struct {
	mu   sync.Mutex
	txMu sync.Mutex

	blocks   map[string]block.Block
	bookings map[string]Booking
	payments map[string]payment.Payment
	seq      int
	now      time.Time
}

func newWorld(now time.Time) *world {
	return &world{
		blocks:   map[string]block.Block{},
		bookings: map[string]Booking{},
		payments: map[string]payment.Payment{},
		now:      now,
	}
}

func (w *world) nextID() string {
	w.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", w.seq)
}

func (w *world) addBlock(b block.Block) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b.ID == "" {
		b.ID = w.nextID()
	}
	if b.Status == "" {
		b.Status = block.StatusAvailable
	}
	w.blocks[b.ID] = b
	return b.ID
}

func (w *world) addBooking(b Booking) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b.ID == "" {
		b.ID = w.nextID()
	}
	w.bookings[b.ID] = b
	return b.ID
}

func (w *world) block(id string) block.Block {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.blocks[id]
}

func (w *world) booking(id string) Booking {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bookings[id]
}

func (w *world) payment(bookingID string) (payment.Payment, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.payments[bookingID]
	return p, ok
}

func (w *world) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	w.txMu.Lock()
	defer w.txMu.Unlock()

	w.mu.Lock()
	blocks := make(map[string]block.Block, len(w.blocks))
	for k, v := range w.blocks {
		blocks[k] = v
	}
	bookings := make(map[string]Booking, len(w.bookings))
	for k, v := range w.bookings {
		bookings[k] = v
	}
	w.mu.Unlock()

	if err := fn(ctx); err != nil {
		w.mu.Lock()
		w.blocks = blocks
		w.bookings = bookings
		w.mu.Unlock()
		return err
	}
	return nil
}

type fakeBlocks struct{ w *world }

func (f fakeBlocks) GetByID(_ context.Context, id string) (*block.Block, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b, ok := f.w.blocks[id]
	if !ok {
		return nil, block.ErrNotFound
	}
	return &b, nil
}

func (f fakeBlocks) Reserve(_ context.Context, id string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b, ok := f.w.blocks[id]
	if !ok || b.Status != block.StatusAvailable {
		return false, nil
	}
	b.Status = block.StatusReserved
	f.w.blocks[id] = b
	return true, nil
}

func (f fakeBlocks) Release(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b, ok := f.w.blocks[id]
	if !ok {
		return block.ErrNotFound
	}
	b.Status = block.StatusAvailable
	f.w.blocks[id] = b
	return nil
}

func (f fakeBlocks) HasOverlap(_ context.Context, spotID string, start, end time.Time, excludeID string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, b := range f.w.blocks {
		if b.ID == excludeID || b.SpotID != spotID || b.Status == block.StatusAvailable {
			continue
		}
		if b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

type fakeBookings struct{ w *world }

func (f fakeBookings) Create(_ context.Context, b *Booking) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b.ID = f.w.nextID()
	b.CreatedAt = f.w.now
	b.UpdatedAt = f.w.now
	f.w.bookings[b.ID] = *b
	return nil
}

func (f fakeBookings) get(id string) (*Booking, error) {
	b, ok := f.w.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	blk := f.w.blocks[b.BlockID]
	b.SpotLabel, b.StartTime, b.EndTime = blk.SpotLabel, blk.StartTime, blk.EndTime
	return &b, nil
}

func (f fakeBookings) GetByID(_ context.Context, id string) (*Booking, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.get(id)
}

func (f fakeBookings) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*Booking
	for id, b := range f.w.bookings {
		if filter.PayerID != "" && b.PayerID != filter.PayerID {
			continue
		}
		if filter.BuildingID != "" && b.BuildingID != filter.BuildingID {
			continue
		}
		got, _ := f.get(id)
		out = append(out, got)
	}
	return out, len(out), nil
}

func (f fakeBookings) MarkCancelled(_ context.Context, id string, c Cancellation) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b, ok := f.w.bookings[id]
	if !ok {
		return false, nil
	}
	from := c.From
	if len(from) == 0 {
		from = []Status{StatusPending, StatusConfirmed}
	}
	allowed := false
	for _, s := range from {
		allowed = allowed || b.Status == s
	}
	if !allowed {
		return false, nil
	}
	b.Status = StatusCancelled
	b.RefundAmount = c.RefundAmount
	if c.RefundAmount > 0 {
		b.PaymentStatus = PaymentRefunded
	}
	actor, reason, at := c.ActorID, c.Reason, c.At
	b.CancelledBy, b.CancelReason, b.CancelledAt = &actor, &reason, &at
	f.w.bookings[id] = b
	return true, nil
}

func (f fakeBookings) ConfirmPaid(_ context.Context, id string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b, ok := f.w.bookings[id]
	if !ok || b.Status != StatusPending {
		return false, nil
	}
	b.Status, b.PaymentStatus = StatusConfirmed, PaymentPaid
	f.w.bookings[id] = b
	return true, nil
}

func (f fakeBookings) ListExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var ids []string
	for id, b := range f.w.bookings {
		if b.Status == StatusPending && b.CreatedAt.Before(cutoff) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakePayments struct {
	w   *world
	err error
}

func (f fakePayments) GetByBookingID(_ context.Context, bookingID string) (*payment.Payment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.payments[bookingID]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return &p, nil
}

func (f fakePayments) Upsert(_ context.Context, p *payment.Payment) error {
	if f.err != nil {
		return f.err
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if cur, ok := f.w.payments[p.BookingID]; ok {
		p.Mode = cur.Mode
	}
	f.w.payments[p.BookingID] = *p
	return nil
}

func (f fakePayments) MarkRefunded(_ context.Context, bookingID string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.payments[bookingID]
	if !ok {
		return payment.ErrNotFound
	}
	p.Status = payment.StatusRefunded
	f.w.payments[bookingID] = p
	return nil
}

// stubGateway records calls and fails on demand.
type stubGateway struct {
	mode payment.Mode

	mu         sync.Mutex
	failIntent bool
	failRefund bool
	refunds    []int64
}

func (g *stubGateway) Mode() payment.Mode { return g.mode }

func (g *stubGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failIntent {
		return nil, errors.New("gateway timeout")
	}
	return &payment.Intent{
		RedirectURL: "https://pay.example/" + req.BookingID,
		GatewayRef:  "ref_" + req.BookingID,
	}, nil
}

func (g *stubGateway) Refund(_ context.Context, req payment.RefundRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefund {
		return errors.New("refund rejected")
	}
	g.refunds = append(g.refunds, req.Amount)
	return nil
}

func (g *stubGateway) ParseWebhook(context.Context, payment.WebhookInput) (*payment.Notice, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) setFailIntent(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failIntent = v
}

func (g *stubGateway) refundCalls() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.refunds...)
}

type noRules struct{}

func (noRules) FindActive(context.Context, string, time.Time, time.Time) ([]pricing.Rule, error) {
	return nil, nil
}

type fakeChecker struct{ err error }

func (f fakeChecker) Check(context.Context, string, blacklist.Subject) error { return f.err }

type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingBus) Publish(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingBus) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
