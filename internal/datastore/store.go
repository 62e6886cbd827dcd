// internal/datastore/store.go
package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultQueueDepth is the inbound request queue depth.
	DefaultQueueDepth = 10

	// DefaultResponseTimeout bounds one call: queue admission plus answer.
	DefaultResponseTimeout = 100 * time.Millisecond
)

// Loader restores NVM-backed datapoints during the init phase.
// found=false means nothing is stored and the catalog default stays.
type Loader interface {
	LoadPersisted(t Type, first uint32, dst []Value) (found bool, err error)
}

// Config sizes the store. Everything is allocated by New.
type Config struct {
	Catalog          *Catalog
	MaxSubscriptions [TypeCount]int
	QueueDepth       int
	ResponseTimeout  time.Duration
	Loader           Loader
	Logger           *slog.Logger
}

type phase uint32

const (
	phaseInit phase = iota
	phaseRunning
	phaseStopped
)

type requestKind uint8

const (
	reqRead requestKind = iota + 1
	reqWrite
	reqSubscribe
	reqSetPaused
)

// request lives for one actor iteration. buf is a pool buffer: the read
// target or the write payload.
type request struct {
	kind   requestKind
	typ    Type
	first  uint32
	buf    []Value
	sub    subscription
	handle Handle
	paused bool
	resp   chan response
}

type response struct {
	err error
}

// Store is the datapoint registry. A single actor goroutine (Run) owns the
// tables and registries; every other goroutine goes through the queue.
type Store struct {
	log     *slog.Logger
	catalog *Catalog
	loader  Loader
	timeout time.Duration

	st    state
	queue chan request

	phaseMu sync.Mutex
	phase   atomic.Uint32

	handles atomic.Uint32
	ready   chan struct{}
	done    chan struct{}

	// Private response channels. A channel goes back only after its one
	// answer was received, so a late answer is never seen by another call.
	resps sync.Pool

	reads          atomic.Uint64
	writes         atomic.Uint64
	notifications  atomic.Uint64
	notifyFailures atomic.Uint64
	unknown        atomic.Uint64
}

// Stats is a point-in-time view of the store counters.
type Stats struct {
	Reads           uint64
	Writes          uint64
	Notifications   uint64
	NotifyFailures  uint64
	UnknownRequests uint64
	BuffersFree     int
	BuffersTotal    int
}

// New runs the allocation part of the init phase: tables from the catalog,
// subscription registries and the buffer pool. Any failure is fatal.
//
// Pool sizing: buffers hold max(N_type) values padded by the queue depth.
// Callers may hold depth+1 of them (the queued requests plus the one being
// handled); the actor keeps a reserve of max(maxSubs_type), at least one,
// for notification and restore.
func New(cfg Config) (*Store, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog required", ErrInvalidArgument)
	}

	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	timeout := cfg.ResponseTimeout
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		log:     logger.With("component", "datastore"),
		catalog: cfg.Catalog,
		loader:  cfg.Loader,
		timeout: timeout,
		queue:   make(chan request, depth),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.resps.New = func() any { return make(chan response, 1) }

	maxSubs := 0
	for t := Type(0); t < TypeCount; t++ {
		s.st.tables[t] = newTable(t, cfg.Catalog.Entries(t))
		if err := s.st.subs[t].allocate(t, cfg.MaxSubscriptions[t]); err != nil {
			s.log.Error("subscription allocation failed", "type", t, "err", err)
			return nil, err
		}
		maxSubs = max(maxSubs, cfg.MaxSubscriptions[t])
	}

	reserve := max(maxSubs, 1)
	pool, err := NewPool(cfg.Catalog.MaxCount()+depth, depth+1+reserve)
	if err == nil {
		err = pool.LendCallers(depth + 1)
	}
	if err != nil {
		s.log.Error("buffer pool allocation failed", "err", err)
		return nil, err
	}
	s.st.pool = pool

	return s, nil
}

// Run is the actor loop. It restores NVM-backed values, delivers the
// initial notifications, then serves requests until ctx is done.
// It may be called once.
func (s *Store) Run(ctx context.Context) error {
	s.phaseMu.Lock()
	if phase(s.phase.Load()) != phaseInit {
		s.phaseMu.Unlock()
		return ErrAlreadyRunning
	}
	s.phase.Store(uint32(phaseRunning))
	s.phaseMu.Unlock()

	defer func() {
		s.phase.Store(uint32(phaseStopped))
		close(s.done)
	}()

	restored := s.restore()

	n, failed, err := s.st.notifyAll()
	s.notifications.Add(uint64(n))
	if err != nil {
		s.notifyFailures.Add(uint64(failed))
		s.log.Error("initial notifications failed", "types", failed, "err", err)
	}

	s.log.Info("datastore serving",
		"restored", restored,
		"initial_notifications", n,
		"buffers", s.st.pool.Size(),
		"buffer_size", s.st.pool.BufferSize(),
	)
	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.queue:
			s.handle(req)
		}
	}
}

// Ready is closed once the store serves requests.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Done is closed once Run has returned.
func (s *Store) Done() <-chan struct{} { return s.done }

// Catalog returns the catalog the store was built from.
func (s *Store) Catalog() *Catalog { return s.catalog }

// Count returns N_type.
func (s *Store) Count(t Type) int {
	if !t.Valid() {
		return 0
	}
	return s.st.tables[t].len()
}

func (s *Store) Stats() Stats {
	return Stats{
		Reads:           s.reads.Load(),
		Writes:          s.writes.Load(),
		Notifications:   s.notifications.Load(),
		NotifyFailures:  s.notifyFailures.Load(),
		UnknownRequests: s.unknown.Load(),
		BuffersFree:     s.st.pool.Available(),
		BuffersTotal:    s.st.pool.Size(),
	}
}

// ---- caller API ----

// Read copies count=len(out) values starting at first into out.
func (s *Store) Read(ctx context.Context, t Type, first uint32, out []Value) error {
	buf, err := s.ReadBuffer(ctx, t, first, len(out))
	if err != nil {
		return err
	}
	copy(out, buf)
	return s.ReturnBuffer(buf)
}

// ReadBuffer reads count values into a pool buffer. The caller owns the
// returned slice and must hand it back with ReturnBuffer exactly once.
func (s *Store) ReadBuffer(ctx context.Context, t Type, first uint32, count int) ([]Value, error) {
	if err := s.precheck(t, first, count); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := request{kind: reqRead, typ: t, first: first}
	buf, err := s.st.pool.AcquireWait(ctx)
	if err != nil {
		return nil, bufferErr(ctx, req, err)
	}
	req.buf = buf[:count]

	out, err := s.submit(ctx, req, true)
	if err != nil {
		// An abandoned read still belongs to the actor.
		if out != queued {
			_ = s.st.pool.Release(buf)
		}
		return nil, err
	}
	return req.buf, nil
}

// ReturnBuffer releases a buffer obtained from ReadBuffer.
func (s *Store) ReturnBuffer(buf []Value) error {
	return s.st.pool.Release(buf)
}

// Write stores values starting at first. With wait=false the write is
// fire-and-forget: only admission errors are reported and failures are
// logged by the actor. A notification failure is reported to a waiting
// writer; the values stay committed.
func (s *Store) Write(ctx context.Context, t Type, first uint32, values []Value, wait bool) error {
	if err := s.precheck(t, first, len(values)); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := request{kind: reqWrite, typ: t, first: first}
	buf, err := s.st.pool.AcquireWait(ctx)
	if err != nil {
		return bufferErr(ctx, req, err)
	}
	req.buf = buf[:copy(buf, values)]

	out, err := s.submit(ctx, req, wait)
	if out == notQueued {
		_ = s.st.pool.Release(buf)
	}
	return err
}

// Subscribe registers cb for [first, first+count) of type t. Before Run the
// registry is updated directly; afterwards the call goes through the queue.
// Adding the same callback twice creates two independent subscriptions.
func (s *Store) Subscribe(ctx context.Context, t Type, first uint32, count int, cb Callback) (Handle, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: type %d", ErrInvalidArgument, t)
	}
	if cb == nil {
		return 0, fmt.Errorf("%w: nil %s subscription callback", ErrInvalidArgument, t)
	}
	if err := s.st.tables[t].checkRange(first, count); err != nil {
		return 0, err
	}

	sub := subscription{
		handle: Handle(s.handles.Add(1)),
		first:  first,
		count:  count,
		cb:     cb,
	}

	applied, err := s.direct(func() error { return s.st.subs[t].add(sub) })
	if !applied {
		_, err = s.submit(ctx, request{kind: reqSubscribe, typ: t, sub: sub}, true)
	}
	if err != nil {
		return 0, err
	}
	return sub.handle, nil
}

// Pause stops notifications for the subscription h of type t.
func (s *Store) Pause(ctx context.Context, t Type, h Handle) error {
	return s.setPaused(ctx, t, h, true)
}

// Unpause resumes future notifications. Missed changes are not replayed.
func (s *Store) Unpause(ctx context.Context, t Type, h Handle) error {
	return s.setPaused(ctx, t, h, false)
}

func (s *Store) setPaused(ctx context.Context, t Type, h Handle, paused bool) error {
	if !t.Valid() {
		return fmt.Errorf("%w: type %d", ErrInvalidArgument, t)
	}
	applied, err := s.direct(func() error { return s.st.subs[t].setPaused(h, paused) })
	if !applied {
		_, err = s.submit(ctx, request{kind: reqSetPaused, typ: t, handle: h, paused: paused}, true)
	}
	return err
}

// direct applies an administrative change in place while no actor exists.
func (s *Store) direct(fn func() error) (applied bool, err error) {
	s.phaseMu.Lock()
	defer s.phaseMu.Unlock()

	switch phase(s.phase.Load()) {
	case phaseInit:
		return true, fn()
	case phaseStopped:
		return true, ErrStopped
	default:
		return false, nil
	}
}

func (s *Store) precheck(t Type, first uint32, count int) error {
	switch phase(s.phase.Load()) {
	case phaseInit:
		return ErrNotInitialized
	case phaseStopped:
		return ErrStopped
	}
	if !t.Valid() {
		return fmt.Errorf("%w: type %d", ErrInvalidArgument, t)
	}
	if count <= 0 {
		return fmt.Errorf("%w: %s value count %d", ErrInvalidArgument, t, count)
	}
	return s.st.tables[t].checkRange(first, count)
}

// outcome tells a caller who owns the request buffer after submit.
type outcome uint8

const (
	notQueued outcome = iota // caller
	queued                   // actor; no answer was taken
	answered                 // caller again, for reads
)

// submit enqueues req and, when wait is set, blocks for its status. The
// whole call is bounded by the response timeout. Read and Write pass a ctx
// whose deadline also covered their wait for a buffer.
func (s *Store) submit(ctx context.Context, req request, wait bool) (outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if wait {
		req.resp = s.resps.Get().(chan response)
	}

	select {
	case s.queue <- req:
	case <-ctx.Done():
		if wait {
			s.resps.Put(req.resp)
		}
		return notQueued, callErr(ctx, req, "enqueue")
	case <-s.done:
		if wait {
			s.resps.Put(req.resp)
		}
		return notQueued, ErrStopped
	}

	if !wait {
		return queued, nil
	}

	select {
	case r := <-req.resp:
		s.resps.Put(req.resp)
		return answered, r.err
	case <-ctx.Done():
		s.abandon(req)
		return queued, callErr(ctx, req, "response")
	case <-s.done:
		s.abandon(req)
		return queued, ErrStopped
	}
}

// abandon forgets a request whose answer did not arrive in time. The
// response channel is never reused. A read buffer is still being filled
// by the actor, so it goes back to the pool only after the late answer.
func (s *Store) abandon(req request) {
	if req.kind != reqRead {
		return
	}
	go func() {
		select {
		case <-req.resp:
		case <-s.done:
		}
		_ = s.st.pool.Release(req.buf)
	}()
}

// bufferErr maps a failed wait for a lent buffer to the call status.
func bufferErr(ctx context.Context, req request, err error) error {
	if ctx.Err() != nil {
		return callErr(ctx, req, "buffer")
	}
	return err
}

func callErr(ctx context.Context, req request, stage string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s %s", ErrTimeout, req.typ, req.kind, stage)
	}
	return ctx.Err()
}

func (k requestKind) String() string {
	switch k {
	case reqRead:
		return "read"
	case reqWrite:
		return "write"
	case reqSubscribe:
		return "subscribe"
	case reqSetPaused:
		return "pause"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ---- actor side ----

func (s *Store) handle(req request) {
	var err error

	switch {
	case req.kind < reqRead || req.kind > reqSetPaused:
		s.unknown.Add(1)
		s.log.Warn("unsupported request kind", "kind", uint8(req.kind))
		err = fmt.Errorf("%w: request kind %d", ErrInvalidArgument, req.kind)
	case !req.typ.Valid():
		err = fmt.Errorf("%w: type %d", ErrInvalidArgument, req.typ)
	default:
		switch req.kind {
		case reqRead:
			s.reads.Add(1)
			err = s.st.tables[req.typ].read(req.first, req.buf)
		case reqWrite:
			s.writes.Add(1)
			err = s.applyWrite(req)
		case reqSubscribe:
			err = s.st.subs[req.typ].add(req.sub)
		case reqSetPaused:
			err = s.st.subs[req.typ].setPaused(req.handle, req.paused)
		}
	}

	if req.kind == reqWrite && req.buf != nil {
		if rerr := s.st.pool.Release(req.buf); rerr != nil {
			s.log.Error("write buffer release failed", "type", req.typ, "err", rerr)
		}
	}

	if req.resp != nil {
		req.resp <- response{err: err}
		return
	}
	if err != nil {
		s.log.Error("request failed",
			"kind", req.kind.String(),
			"type", req.typ.String(),
			"first", req.first,
			"count", len(req.buf),
			"err", err,
		)
	}
}

// applyWrite commits the values and notifies overlapping subscribers when
// anything changed. The table is never rolled back.
func (s *Store) applyWrite(req request) error {
	changed, err := s.st.tables[req.typ].write(req.first, req.buf)
	if err != nil || !changed {
		return err
	}

	n, err := s.st.notify(req.typ, req.first, len(req.buf))
	s.notifications.Add(uint64(n))
	if err != nil {
		s.notifyFailures.Add(1)
		s.log.Warn("notification failed",
			"type", req.typ.String(),
			"first", req.first,
			"count", len(req.buf),
			"err", err,
		)
	}
	return err
}

// restore loads every run of NVM-backed datapoints from the loader. Loader
// errors fall back to catalog defaults.
func (s *Store) restore() (restored int) {
	if s.loader == nil {
		return 0
	}
	for t := Type(0); t < TypeCount; t++ {
		tbl := &s.st.tables[t]
		tbl.persistRuns(func(first uint32, count int) {
			buf, err := s.st.pool.Acquire()
			if err != nil {
				s.log.Error("restore buffer unavailable", "type", t, "err", err)
				return
			}
			defer func() { _ = s.st.pool.Release(buf) }()

			dst := buf[:count]
			found, err := s.loader.LoadPersisted(t, first, dst)
			switch {
			case err != nil:
				s.log.Warn("restore failed, keeping defaults", "type", t, "first", first, "count", count, "err", err)
			case !found:
				s.log.Debug("nothing persisted", "type", t, "first", first, "count", count)
			default:
				if _, err := tbl.write(first, dst); err != nil {
					s.log.Error("restore write failed", "type", t, "err", err)
					return
				}
				restored += count
			}
		})
	}
	return restored
}
