package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/general/config"
	"bus-fleet/internal/general/logger"
)

// ----- in-memory store with per-bus row locks and rollback -----

type memStore struct {
	mu     sync.Mutex
	buses  map[int]*bus.Bus
	events []arrival.Event
	rows   map[int]*sync.Mutex

	failAppend error
	failApply  error
}

func newMemStore() *memStore {
	return &memStore{
		buses: make(map[int]*bus.Bus),
		rows:  make(map[int]*sync.Mutex),
	}
}

func (s *memStore) rowLock(id int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		l = &sync.Mutex{}
		s.rows[id] = l
	}
	return l
}

func (s *memStore) bus(id int) (bus.Bus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[id]
	if !ok {
		return bus.Bus{}, false
	}
	return *b, true
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type txKey struct{}

type memTx struct {
	undo    []func() // run under store.mu, newest first
	unlocks []func()
}

func txFrom(ctx context.Context) (*memTx, bool) {
	tx, ok := ctx.Value(txKey{}).(*memTx)
	return tx, ok
}

type memUoW struct {
	store *memStore
}

func (u *memUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx := &memTx{}
	err := fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		u.store.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		u.store.mu.Unlock()
	}
	for _, unlock := range tx.unlocks {
		unlock()
	}
	return err
}

func (u *memUoW) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.WithinTx(ctx, fn)
}

var errNoTx = errors.New("no transaction in context")

type memBusRepo struct {
	store *memStore
}

func (r *memBusRepo) InsertMany(ctx context.Context, buses []*bus.Bus) error {
	tx, _ := txFrom(ctx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range buses {
		if _, dup := r.store.buses[b.ID]; dup {
			return errors.New("duplicate bus id")
		}
	}
	for _, b := range buses {
		cp := *b
		r.store.buses[b.ID] = &cp
		if tx != nil {
			id := b.ID
			tx.undo = append(tx.undo, func() { delete(r.store.buses, id) })
		}
	}
	return nil
}

func (r *memBusRepo) Count(context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.buses), nil
}

func (r *memBusRepo) GetByID(_ context.Context, busID int) (*bus.Bus, error) {
	b, ok := r.store.bus(busID)
	if !ok {
		return nil, bus.ErrBusNotFound
	}
	return &b, nil
}

func (r *memBusRepo) GetForUpdate(ctx context.Context, busID int) (*bus.Bus, error) {
	tx, ok := txFrom(ctx)
	if !ok {
		return nil, errNoTx
	}

	l := r.store.rowLock(busID)
	l.Lock()
	tx.unlocks = append(tx.unlocks, l.Unlock)

	b, found := r.store.bus(busID)
	if !found {
		return nil, bus.ErrBusNotFound
	}
	return &b, nil
}

func (r *memBusRepo) ApplyDelta(ctx context.Context, busID, newCount int, revenueDelta int64, status bus.Status) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return errNoTx
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failApply != nil {
		return r.store.failApply
	}
	b, found := r.store.buses[busID]
	if !found {
		return bus.ErrBusNotFound
	}

	prev := *b
	tx.undo = append(tx.undo, func() { *b = prev })

	b.CurrentPassengers = newCount
	b.Revenue += revenueDelta
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memBusRepo) ListAll(context.Context) ([]*bus.Bus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*bus.Bus, 0, len(r.store.buses))
	for _, b := range r.store.buses {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBusRepo) Clear(ctx context.Context) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return errNoTx
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev := r.store.buses
	tx.undo = append(tx.undo, func() { r.store.buses = prev })
	r.store.buses = make(map[int]*bus.Bus)
	return nil
}

type memArrivalRepo struct {
	store *memStore
}

func (r *memArrivalRepo) Append(ctx context.Context, e *arrival.Event) error {
	tx, _ := txFrom(ctx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failAppend != nil {
		return r.store.failAppend
	}
	if _, ok := r.store.buses[e.BusID]; !ok {
		return bus.ErrBusNotFound
	}
	r.store.events = append(r.store.events, *e)
	if tx != nil {
		n := len(r.store.events) - 1
		tx.undo = append(tx.undo, func() { r.store.events = r.store.events[:n] })
	}
	return nil
}

func (r *memArrivalRepo) ListSince(_ context.Context, busID int, since time.Time) ([]arrival.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []arrival.Event
	for _, e := range r.store.events {
		if e.BusID == busID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *memArrivalRepo) SumEnteredSince(ctx context.Context, busID int, since time.Time) (int, error) {
	events, err := r.ListSince(ctx, busID, since)
	if err != nil {
		return 0, err
	}
	return arrival.SumEntered(events), nil
}

func (r *memArrivalRepo) Clear(ctx context.Context) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return errNoTx
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev := r.store.events
	tx.undo = append(tx.undo, func() { r.store.events = prev })
	r.store.events = nil
	return nil
}

// ----- publisher -----

type published struct {
	exchange   string
	routingKey string
	body       []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.routingKey)
	}
	return out
}

// ----- fixture -----

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *fleetService
	store *memStore
	pub   *fakePublisher
}

func defaultPlan() config.FleetPlan {
	return config.FleetPlan{
		Size:        10,
		Composition: bus.DefaultComposition(),
		Capacities:  bus.DefaultCapacities(),
		Fares:       bus.DefaultFares(),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	pub := &fakePublisher{}
	svc, err := NewFleetService(
		logger.NewWithWriter("test", io.Discard),
		&memUoW{store: store},
		&memBusRepo{store: store},
		&memArrivalRepo{store: store},
		pub,
		defaultPlan(),
	)
	if err != nil {
		t.Fatalf("NewFleetService: %v", err)
	}

	fs := svc.(*fleetService)
	fs.now = func() time.Time { return testNow }

	if err := fs.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return &fixture{svc: fs, store: store, pub: pub}
}
