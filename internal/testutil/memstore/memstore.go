// Package memstore is an in-memory stand-in for the postgres store, used by service tests.
// Transactions are serialized and roll back to a snapshot on error.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type txKey struct{}

type Store struct {
	mu       sync.Mutex
	event    *domain.Event
	tiers    map[int64]domain.TicketTier
	bookings map[uuid.UUID]domain.Booking
	proofs   map[uuid.UUID]proof

	// Reserves counts calls to Reserve, committed or not.
	Reserves int
	Releases int
}

func New() *Store {
	return &Store{
		tiers:    make(map[int64]domain.TicketTier),
		bookings: make(map[uuid.UUID]domain.Booking),
		proofs:   make(map[uuid.UUID]proof),
	}
}

// lock takes the store mutex unless ctx already runs inside RunTx, which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) RunTx(ctx context.Context, _ *pgx.TxOptions, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event := s.event
	tiers := make(map[int64]domain.TicketTier, len(s.tiers))
	for k, v := range s.tiers {
		tiers[k] = v
	}
	bookings := make(map[uuid.UUID]domain.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.event = event
		s.tiers = tiers
		s.bookings = bookings
		return err
	}

	return nil
}

// Tiers is the tier repository view of the store.
func (s *Store) Tiers() *Tiers { return &Tiers{s: s} }

// Bookings is the booking repository view of the store.
func (s *Store) Bookings() *Bookings { return &Bookings{s: s} }

// Query is the read-side view of the store.
func (s *Store) Query() *Query { return &Query{s: s} }

// Catalog is the catalog view of the store.
func (s *Store) Catalog() *Catalog { return &Catalog{s: s} }

// Proofs is the payment-proof view of the store.
func (s *Store) Proofs() *Proofs { return &Proofs{s: s} }

type Tiers struct{ s *Store }

type Bookings struct{ s *Store }

type Query struct{ s *Store }

type Catalog struct{ s *Store }

type Proofs struct{ s *Store }

type proof struct {
	contentType string
	data        []byte
}

// PutTier inserts or replaces a tier.
func (s *Store) PutTier(t domain.TicketTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[t.ID] = t
}

func (r *Tiers) Get(ctx context.Context, id int64) (*domain.TicketTier, error) {
	s := r.s
	defer s.lock(ctx)()

	t, ok := s.tiers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *Tiers) Availability(ctx context.Context, id int64) (domain.TierAvailability, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return domain.TierAvailability{}, err
	}
	return t.Availability(), nil
}

func (r *Tiers) Reserve(ctx context.Context, id int64, qty int) error {
	s := r.s
	defer s.lock(ctx)()

	s.Reserves++
	t, ok := s.tiers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Sold+qty > t.Capacity {
		return repository.ErrNoCapacity
	}
	t.Sold += qty
	s.tiers[id] = t
	return nil
}

func (r *Tiers) Release(ctx context.Context, id int64, qty int) error {
	s := r.s
	defer s.lock(ctx)()

	s.Releases++
	t, ok := s.tiers[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Sold = max(t.Sold-qty, 0)
	s.tiers[id] = t
	return nil
}

func (r *Bookings) Create(ctx context.Context, b domain.Booking) error {
	s := r.s
	defer s.lock(ctx)()

	if _, ok := s.tiers[b.TierID]; !ok {
		return repository.ErrNotFound
	}
	for _, other := range s.bookings {
		if other.PaymentRef == b.PaymentRef {
			return repository.ErrConflict
		}
	}
	s.bookings[b.ID] = b
	return nil
}

func (r *Bookings) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	s := r.s
	defer s.lock(ctx)()

	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *Bookings) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookingStatus,
	unitPrice *int64,
	at time.Time,
) (*domain.Booking, error) {
	s := r.s
	defer s.lock(ctx)()

	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return nil, repository.ErrStatusMismatch
	}

	b.Status = to
	b.UpdatedAt = at
	if unitPrice != nil {
		p := *unitPrice
		b.UnitPriceCents = &p
	}
	if to == domain.BookingConfirmed {
		ts := at
		b.ConfirmedAt = &ts
	}
	s.bookings[id] = b
	return &b, nil
}

func (r *Bookings) ListByTier(
	ctx context.Context,
	tierID int64,
	status domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	s := r.s
	defer s.lock(ctx)()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.TierID == tierID && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []domain.Booking{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Query) GetEventWithTiers(ctx context.Context) (*domain.EventWithTiers, error) {
	s := r.s
	defer s.lock(ctx)()

	if s.event == nil {
		return nil, repository.ErrNotFound
	}

	out := &domain.EventWithTiers{Event: *s.event, Tiers: make([]domain.TicketTier, 0, len(s.tiers))}
	for _, t := range s.tiers {
		out.Tiers = append(out.Tiers, t)
	}
	sort.Slice(out.Tiers, func(i, j int) bool { return out.Tiers[i].ID < out.Tiers[j].ID })
	return out, nil
}

func (r *Query) TierStats(ctx context.Context, tierID int64) (*domain.TierBookingStats, error) {
	s := r.s
	defer s.lock(ctx)()

	t, ok := s.tiers[tierID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	stats := &domain.TierBookingStats{
		TierID:    tierID,
		Quantity:  make(map[domain.BookingStatus]int),
		Bookings:  make(map[domain.BookingStatus]int),
		Available: t.Availability(),
	}
	for _, b := range s.bookings {
		if b.TierID != tierID {
			continue
		}
		stats.Quantity[b.Status] += b.Quantity
		stats.Bookings[b.Status]++
	}
	return stats, nil
}

func (r *Query) ListBookingsByTier(
	ctx context.Context,
	tierID int64,
	status domain.BookingStatus,
	limit, offset int,
) ([]domain.Booking, error) {
	return (&Bookings{s: r.s}).ListByTier(ctx, tierID, status, limit, offset)
}

func (r *Catalog) UpsertEvent(ctx context.Context, e domain.Event) (int64, error) {
	s := r.s
	defer s.lock(ctx)()

	e.ID = 1
	s.event = &e
	return e.ID, nil
}

func (r *Catalog) GetEvent(ctx context.Context) (*domain.Event, error) {
	s := r.s
	defer s.lock(ctx)()

	if s.event == nil {
		return nil, repository.ErrNotFound
	}
	e := *s.event
	return &e, nil
}

func (r *Catalog) CreateTier(ctx context.Context, t domain.TicketTier) (int64, error) {
	s := r.s
	defer s.lock(ctx)()

	var next int64
	for id, other := range s.tiers {
		if other.Name == t.Name {
			return 0, repository.ErrConflict
		}
		next = max(next, id)
	}
	t.ID = next + 1
	s.tiers[t.ID] = t
	return t.ID, nil
}

func (r *Catalog) UpdateTier(ctx context.Context, id int64, u domain.TierUpdate) (*domain.TicketTier, error) {
	s := r.s
	defer s.lock(ctx)()

	t, ok := s.tiers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.PriceCents != nil {
		t.PriceCents = *u.PriceCents
	}
	if u.DiscountPriceCents != nil {
		t.DiscountPriceCents = *u.DiscountPriceCents
	}
	if u.DiscountEndsAt != nil {
		t.DiscountEndsAt = *u.DiscountEndsAt
	}
	if u.Capacity != nil {
		if *u.Capacity < t.Sold {
			return nil, repository.ErrCheckViolation
		}
		t.Capacity = *u.Capacity
	}
	if u.Active != nil {
		t.Active = *u.Active
	}
	s.tiers[id] = t
	return &t, nil
}

func (r *Proofs) Save(ctx context.Context, id uuid.UUID, contentType string, data []byte) error {
	s := r.s
	defer s.lock(ctx)()

	s.proofs[id] = proof{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (r *Proofs) Get(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	s := r.s
	defer s.lock(ctx)()

	p, ok := s.proofs[id]
	if !ok {
		return "", nil, repository.ErrNotFound
	}
	return p.contentType, p.data, nil
}
