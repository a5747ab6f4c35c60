// Package snapshot builds the externally visible status view for one
// request: health and sync classification over a caller-bounded log window,
// reconciled against short-lived caches for metrics the window may lack
// (recent peer count, sticky chain height).
package snapshot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/blockwatch/pkg/logger"
	"github.com/supporttools/blockwatch/pkg/logscan"
	"github.com/supporttools/blockwatch/pkg/metrics"
	"github.com/supporttools/blockwatch/pkg/state"
)

// NotAvailable is the sentinel reported when a metric has no live value and
// no eligible cached fallback.
const NotAvailable = "N/A"

// localTimeLayout renders the last-log-time for humans.
const localTimeLayout = "Jan 02, 2006 03:04:05 PM MST"

// Snapshot is the immutable response value for one status request.
type Snapshot struct {
	OK bool `json:"ok"`

	HealthState logscan.HealthState `json:"health_state"`
	HealthMsg   string              `json:"health_msg"`
	SyncStatus  string              `json:"sync_status"`

	LastLogTimeRaw   string `json:"last_log_time_raw"`
	LastLogTimeLocal string `json:"last_log_time_local"`

	Peers     string      `json:"peers"`
	PeersList []PeerEntry `json:"peers_list"`

	Height      string `json:"height"`
	HeightStale bool   `json:"height_stale"`

	MinedTotal     int64 `json:"mined_total"`
	ProcessedTotal int64 `json:"processed_total"`
	SealedTotal    int64 `json:"sealed_total"`

	// Echoed request parameters.
	Since     string `json:"since"`
	Tail      int    `json:"tail"`
	Container string `json:"container"`
}

// PeerEntry is one row of the peer list.
type PeerEntry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	Full  string `json:"full"`
}

// Source is the slice of the docker client the builder needs.
type Source interface {
	Logs(ctx context.Context, container, since string, tail int) string
	StartedAt(ctx context.Context, name string) string
}

// Options configures a Builder.
type Options struct {
	// PeerStaleness is how long a cached positive peer count may substitute
	// for a window with no peer signal.
	PeerStaleness time.Duration

	// Location is the display time zone for the localized last-log-time.
	Location *time.Location

	// ErrorThreshold gates the health classifier's error rule; <= 1 disables.
	ErrorThreshold int

	// MaxPeerItems caps the peer list length.
	MaxPeerItems int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Builder assembles snapshots. The embedded peer cache is process-lifetime
// only; losing it on restart is acceptable.
type Builder struct {
	source  Source
	store   *state.Store
	metrics *metrics.Metrics
	opts    Options
	log     *logrus.Entry

	peerMu     sync.Mutex
	peerValue  int
	peerSeenAt time.Time
	peerValid  bool
}

// NewBuilder creates a builder. m may be nil to disable instrumentation.
func NewBuilder(source Source, store *state.Store, m *metrics.Metrics, opts Options) *Builder {
	if opts.PeerStaleness <= 0 {
		opts.PeerStaleness = 90 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxPeerItems <= 0 {
		opts.MaxPeerItems = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{
		source:  source,
		store:   store,
		metrics: m,
		opts:    opts,
		log:     logger.WithField("component", "snapshot"),
	}
}

// Build fetches the caller's log window and assembles the status view.
// st is the durable record as of this poll; its totals are echoed and its
// LastHeight is the fallback when the window has no height signal.
func (b *Builder) Build(ctx context.Context, container, since string, tail int, st state.PersistedState) *Snapshot {
	text := b.source.Logs(ctx, container, since, tail)

	healthState, healthMsg := logscan.Health(text, logscan.HealthOptions{
		ErrorThreshold: b.opts.ErrorThreshold,
	})

	lastRaw := logscan.LastTimestamp(text)
	if lastRaw == "" {
		lastRaw = b.source.StartedAt(ctx, container)
	}
	if lastRaw == "" {
		lastRaw = NotAvailable
	}

	height, heightStale := b.resolveHeight(text, st)

	snap := &Snapshot{
		OK:               true,
		HealthState:      healthState,
		HealthMsg:        healthMsg,
		SyncStatus:       logscan.SyncStatus(text),
		LastLogTimeRaw:   lastRaw,
		LastLogTimeLocal: b.formatLocal(lastRaw),
		Peers:            b.resolvePeers(text),
		PeersList:        peerEntries(logscan.PeerIdentities(text, b.opts.MaxPeerItems)),
		Height:           height,
		HeightStale:      heightStale,
		MinedTotal:       st.Counters.Mined,
		ProcessedTotal:   st.Counters.Processed,
		SealedTotal:      st.Counters.Sealed,
		Since:            since,
		Tail:             tail,
		Container:        container,
	}
	return snap
}

// resolvePeers applies the staleness policy: a positive live value refreshes
// the cache and is reported directly; an absent signal falls back to a
// young-enough cached positive value; an explicit live zero is reported
// as-is and never triggers the fallback.
func (b *Builder) resolvePeers(text string) string {
	value, found := logscan.PeerCount(text)
	now := b.opts.Now()

	b.peerMu.Lock()
	defer b.peerMu.Unlock()

	if found && value > 0 {
		b.peerValue = value
		b.peerSeenAt = now
		b.peerValid = true
		if b.metrics != nil {
			b.metrics.PeersObserved.Set(float64(value))
		}
		return strconv.Itoa(value)
	}
	if !found {
		if b.peerValid && now.Sub(b.peerSeenAt) <= b.opts.PeerStaleness {
			return strconv.Itoa(b.peerValue)
		}
		return NotAvailable
	}
	// Observed zero: a real signal, reported directly.
	return strconv.Itoa(value)
}

// resolveHeight applies the stickiness policy: a live height is persisted to
// the shared durable record and reported fresh; an absent height falls back
// to the persisted value, flagged stale.
func (b *Builder) resolveHeight(text string, st state.PersistedState) (string, bool) {
	if value, ok := logscan.MaxInt(logscan.HeightPatterns, text); ok {
		b.store.Update(func(cur *state.PersistedState) {
			cur.LastHeight = &value
		})
		if b.metrics != nil {
			b.metrics.LastHeight.Set(float64(value))
		}
		return strconv.FormatInt(value, 10), false
	}
	if st.LastHeight != nil {
		return strconv.FormatInt(*st.LastHeight, 10), true
	}
	return NotAvailable, false
}

// formatLocal renders a raw extracted timestamp in the display time zone.
// Unparseable input is echoed unchanged so the caller still sees something.
func (b *Builder) formatLocal(raw string) string {
	if raw == "" || raw == NotAvailable {
		return NotAvailable
	}
	parsed, ok := logscan.ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return parsed.In(b.opts.Location).Format(localTimeLayout)
}

func peerEntries(identities []logscan.PeerIdentity) []PeerEntry {
	if len(identities) == 0 {
		return []PeerEntry{}
	}
	entries := make([]PeerEntry, 0, len(identities))
	for _, id := range identities {
		entries = append(entries, PeerEntry{ID: id.Short, Count: id.Count, Full: id.Full})
	}
	return entries
}
