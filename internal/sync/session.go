// internal/sync/session.go

// Package sync reconciles a client's local view of a game with the
// authoritative stored state. One Session is supervised per active game
// view: it owns the change-feed subscription, the resync cadence, the
// offline operation queue and the retry/backoff state, and communicates
// with its owner over channels. Conflict policy is server-wins throughout.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
	"github.com/sirupsen/logrus"
)

// Status is the session's externally visible sync state.
type Status string

const (
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	// StatusFailed is terminal: retries were exhausted and the session has
	// stopped. The owner decides whether to build a fresh session.
	StatusFailed Status = "sync_failed"
)

// NetworkQuality classifies observed connectivity. It changes sync cadence
// and user-facing affordances only; reconciliation rules are identical in
// every class.
type NetworkQuality string

const (
	QualityOnline   NetworkQuality = "online"
	QualityUnstable NetworkQuality = "unstable"
	QualityOffline  NetworkQuality = "offline"
)

// unstableRTT is the round-trip latency above which a healthy connection is
// classified unstable.
const unstableRTT = 750 * time.Millisecond

// OpKind labels a queued offline operation.
type OpKind string

const (
	OpPlay       OpKind = "play"
	OpPass       OpKind = "pass"
	OpHandUpdate OpKind = "hand_update"
)

// OfflineOp is an operation generated while disconnected or mid-retry. Seq
// is a monotonically increasing local stamp; ExpectedTurn and Seat record
// the state the user acted against, and decide replay-vs-discard at resync.
type OfflineOp struct {
	Seq          int64
	Kind         OpKind
	Seat         int
	Cards        []models.Card
	ExpectedTurn int
	QueuedAt     time.Time
}

// Backend is the slice of the game service a session reconciles against.
type Backend interface {
	// FetchDetails returns the authoritative joined game snapshot.
	FetchDetails(ctx context.Context) (*models.GameDetails, error)
	// SubmitPlay and SubmitPass carry the fencing token observed when the
	// user acted; the service rejects stale submissions without effects.
	SubmitPlay(ctx context.Context, seat int, cards []models.Card, expectedTurn int) error
	SubmitPass(ctx context.Context, seat int, expectedTurn int) error
}

// Feed is the change-hint stream a session listens on. A closed Events
// channel means the stream is lost for good; *pubsub.Subscription satisfies
// this.
type Feed interface {
	Events() <-chan pubsub.ChangeEvent
	Close() error
}

// Options tunes session cadence and retry bounds. Zero values take the
// defaults below.
type Options struct {
	// ResyncInterval is the periodic resync tick while online. It is
	// doubled while the connection is classified unstable and quadrupled
	// while offline.
	ResyncInterval time.Duration
	// MaxAttempts bounds consecutive failed resyncs before the session
	// surfaces StatusFailed and stops.
	MaxAttempts int
	// BackoffBase is the first retry delay; each attempt doubles it up to
	// BackoffCeiling.
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.ResyncInterval <= 0 {
		out.ResyncInterval = 10 * time.Second
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 5
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 500 * time.Millisecond
	}
	if out.BackoffCeiling <= 0 {
		out.BackoffCeiling = 8 * time.Second
	}
	return out
}

// Session reconciles one game view. Create with NewSession, start with Run,
// release with Close.
type Session struct {
	logger  *logrus.Logger
	backend Backend
	feed    Feed
	opts    Options

	mu      sync.Mutex
	queue   []OfflineOp
	nextSeq int64
	status  Status
	quality NetworkQuality

	snapshots chan *models.GameDetails
	statusCh  chan Status
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSession builds a session over an already-open change feed. The feed is
// owned by the session from here on and released by Close.
func NewSession(logger *logrus.Logger, backend Backend, feed Feed, opts Options) *Session {
	return &Session{
		logger:    logger,
		backend:   backend,
		feed:      feed,
		opts:      opts.withDefaults(),
		status:    StatusSyncing,
		quality:   QualityOnline,
		snapshots: make(chan *models.GameDetails, 1),
		statusCh:  make(chan Status, 4),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Snapshots delivers server-wins snapshots after each successful resync.
// Slow consumers only ever miss intermediate snapshots, never the latest:
// the channel holds one element and is drained before refill.
func (s *Session) Snapshots() <-chan *models.GameDetails { return s.snapshots }

// StatusUpdates delivers status transitions, ending with StatusFailed if
// retries are exhausted.
func (s *Session) StatusUpdates() <-chan Status { return s.statusCh }

// Quality returns the current connectivity classification.
func (s *Session) Quality() NetworkQuality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quality
}

// Enqueue records an operation to replay at the next resync, returning its
// local sequence stamp.
func (s *Session) Enqueue(op OfflineOp) int64 {
	s.mu.Lock()
	s.nextSeq++
	op.Seq = s.nextSeq
	if op.QueuedAt.IsZero() {
		op.QueuedAt = time.Now()
	}
	s.queue = append(s.queue, op)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return op.Seq
}

// QueuedOps returns a copy of the pending queue, oldest first.
func (s *Session) QueuedOps() []OfflineOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OfflineOp{}, s.queue...)
}

// Run drives the session until Close or terminal failure. It resyncs on
// change-feed delivery, on explicit wakeups, and on a periodic tick whose
// interval stretches with degraded network quality.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()

	// Initial sync before entering the loop.
	if !s.resyncWithRetry(ctx) {
		return
	}

	timer := time.NewTimer(s.tickInterval())
	defer timer.Stop()

	// events goes nil once the feed closes: a closed channel is permanently
	// ready and would spin the loop; after that only the timer drives resyncs.
	events := s.feed.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				// Feed lost; periodic resync keeps correctness, but treat
				// connectivity as degraded.
				events = nil
				s.setQuality(QualityOffline)
				if !s.resyncWithRetry(ctx) {
					return
				}
				break
			}
			// A change hint is not a trustworthy delta; re-fetch.
			if !s.resyncWithRetry(ctx) {
				return
			}
		case <-s.wake:
			if !s.resyncWithRetry(ctx) {
				return
			}
		case <-timer.C:
			if !s.resyncWithRetry(ctx) {
				return
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.tickInterval())
	}
}

// Close releases the subscription and stops the loop.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-s.done
	}
	s.feed.Close()
}

func (s *Session) tickInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.quality {
	case QualityUnstable:
		return 2 * s.opts.ResyncInterval
	case QualityOffline:
		return 4 * s.opts.ResyncInterval
	default:
		return s.opts.ResyncInterval
	}
}

// resyncWithRetry runs one reconciliation with bounded exponential backoff.
// Returns false when retries are exhausted (terminal) or ctx is done.
func (s *Session) resyncWithRetry(ctx context.Context) bool {
	delay := s.opts.BackoffBase
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		err := s.resyncOnce(ctx)
		if err == nil {
			s.setStatus(StatusSynced)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		s.setQuality(QualityOffline)
		s.setStatus(StatusSyncing)
		s.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay,
			"error":   err,
		}).Warn("resync failed")

		if attempt == s.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.opts.BackoffCeiling {
			delay = s.opts.BackoffCeiling
		}
	}
	s.setStatus(StatusFailed)
	return false
}

// resyncOnce fetches authoritative state, replays still-valid queued
// operations and discards the rest, then publishes the snapshot.
func (s *Session) resyncOnce(ctx context.Context) error {
	start := time.Now()
	details, err := s.backend.FetchDetails(ctx)
	if err != nil {
		return err
	}
	s.observeRTT(time.Since(start))

	// Re-fetch only when replays advanced the state, so the published
	// snapshot is current. A failed second fetch falls back to the
	// pre-replay one; the next tick repairs it.
	if s.replayQueue(ctx, details) > 0 {
		if fresher, err := s.backend.FetchDetails(ctx); err == nil {
			details = fresher
		}
	}

	// Server wins: local speculative state is whatever survived the queue,
	// the snapshot is always the server's.
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- details
	return nil
}

// replayQueue applies each queued op against the fresh snapshot: ops whose
// fencing tokens still match are resubmitted, the rest are discarded with a
// logged reason. Nothing is ever retried silently forever. Returns the
// number of successfully replayed ops.
func (s *Session) replayQueue(ctx context.Context, details *models.GameDetails) int {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	turn := details.State.TurnCount
	current := details.State.CurrentPlayer
	replayed := 0

	for _, op := range pending {
		if op.Kind == OpHandUpdate {
			// Hand contents are server-owned after reconnect; local edits
			// always lose.
			s.logDiscard(op, "server-wins: hand updates are not replayed")
			continue
		}
		if details.State.Status != models.StatusInProgress {
			s.logDiscard(op, "game no longer in progress")
			continue
		}
		if op.ExpectedTurn != turn {
			s.logDiscard(op, "turn moved on")
			continue
		}
		if op.Seat != current {
			s.logDiscard(op, "no longer this seat's turn")
			continue
		}

		var err error
		switch op.Kind {
		case OpPlay:
			err = s.backend.SubmitPlay(ctx, op.Seat, op.Cards, op.ExpectedTurn)
		case OpPass:
			err = s.backend.SubmitPass(ctx, op.Seat, op.ExpectedTurn)
		}
		if err != nil {
			s.logDiscard(op, err.Error())
			continue
		}
		// At most one replayed op can win the turn it was fenced on.
		turn++
		replayed++
		s.logger.WithFields(logrus.Fields{
			"seq":  op.Seq,
			"kind": op.Kind,
			"seat": op.Seat,
			"turn": op.ExpectedTurn,
		}).Info("offline operation replayed")
	}
	return replayed
}

func (s *Session) logDiscard(op OfflineOp, reason string) {
	s.logger.WithFields(logrus.Fields{
		"seq":    op.Seq,
		"kind":   op.Kind,
		"seat":   op.Seat,
		"turn":   op.ExpectedTurn,
		"reason": reason,
	}).Info("offline operation discarded")
}

func (s *Session) observeRTT(rtt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rtt > unstableRTT {
		s.quality = QualityUnstable
	} else {
		s.quality = QualityOnline
	}
}

func (s *Session) setQuality(q NetworkQuality) {
	s.mu.Lock()
	s.quality = q
	s.mu.Unlock()
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed {
		select {
		case s.statusCh <- st:
		default:
		}
	}
}
