package chainsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fundflow/core"
	"fundflow/observability"
)

// Synchronizer owns the authoritative chain-state snapshot. Refresh cycles
// replace the snapshot wholesale; readers always observe a complete,
// consistent view. A failed cycle retains the previous snapshot.
type Synchronizer struct {
	fetcher  *Fetcher
	fallback core.Snapshot
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu sync.RWMutex
	// snapshot is the current view; seenRealData latches once any refresh
	// observes non-empty chain state and is never cleared, so the seed
	// fallback can never resurface after real data has been shown.
	snapshot     core.Snapshot
	seenRealData bool

	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// SyncOption customises synchronizer construction.
type SyncOption func(*Synchronizer)

// WithSyncLogger supplies a structured logger.
func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncMetrics attaches refresh instrumentation.
func WithSyncMetrics(m *observability.Metrics) SyncOption {
	return func(s *Synchronizer) { s.metrics = m }
}

// NewSynchronizer constructs a synchronizer. The fallback snapshot is
// served until the first refresh observes real chain data; its campaigns
// and events must carry Seeded semantics supplied by the caller.
func NewSynchronizer(fetcher *Fetcher, fallback core.Snapshot, opts ...SyncOption) *Synchronizer {
	fallback.Seeded = true
	fallback.Stats = core.ComputeStats(fallback.Campaigns, fallback.Events)
	s := &Synchronizer{
		fetcher:  fetcher,
		fallback: fallback,
		logger:   slog.Default(),
		snapshot: fallback,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current chain-state view.
func (s *Synchronizer) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh runs one synchronous refresh cycle. Fetch failures are absorbed:
// the previous snapshot stays in place and the error is logged, never
// propagated to readers.
func (s *Synchronizer) Refresh(ctx context.Context) {
	// No contract means nothing to fetch: the constructed fallback stands
	// and the cycle is not counted.
	if s.fetcher.contracts.ContractID() == "" {
		return
	}
	var (
		campaigns    []core.Campaign
		events       []core.ChainEvent
		campaignsErr error
		eventsErr    error
		wg           sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		campaigns, campaignsErr = s.fetcher.FetchAllCampaigns(ctx)
	}()
	go func() {
		defer wg.Done()
		events, eventsErr = s.fetcher.FetchRecentEvents(ctx)
	}()
	wg.Wait()

	if campaignsErr != nil || eventsErr != nil {
		if campaignsErr != nil {
			s.logger.Warn("refresh retained previous snapshot", "stage", "campaigns", "error", campaignsErr)
		}
		if eventsErr != nil {
			s.logger.Warn("refresh retained previous snapshot", "stage", "events", "error", eventsErr)
		}
		s.metrics.ObserveRefresh(true, 0)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(campaigns) == 0 && len(events) == 0 {
		// A transiently empty fetch is no change: keep the fallback before
		// real data has ever appeared, keep the last real snapshot after.
		if s.seenRealData {
			s.metrics.ObserveRefresh(false, len(s.snapshot.Campaigns))
			return
		}
		s.snapshot = s.fallback
		s.metrics.ObserveRefresh(false, len(s.fallback.Campaigns))
		return
	}
	s.seenRealData = true
	s.snapshot = core.Snapshot{
		Campaigns: campaigns,
		Events:    events,
		Stats:     core.ComputeStats(campaigns, events),
	}
	s.metrics.ObserveRefresh(false, len(campaigns))
}

// Trigger requests an immediate refresh from the background loop. It
// never blocks; coalescing concurrent triggers into one cycle is fine.
func (s *Synchronizer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start launches the periodic refresh loop. It refreshes once
// immediately, then on every interval tick or Trigger call until Stop.
func (s *Synchronizer) Start(ctx context.Context, interval time.Duration) {
	if s.started {
		return
	}
	s.started = true
	go s.run(ctx, interval)
}

// Stop halts the background loop and blocks until the in-flight cycle, if
// any, has finished.
func (s *Synchronizer) Stop() {
	if !s.started {
		return
	}
	close(s.stop)
	<-s.done
}

func (s *Synchronizer) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		case <-s.trigger:
			s.Refresh(ctx)
		}
	}
}
