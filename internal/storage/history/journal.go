package history

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history: journal closed")

var keyPrefix = []byte("ev/")

// DefaultKeep is the default number of retained events.
const DefaultKeep = 1000

// Result values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Event is one journal entry.
type Event struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Op     string    `json:"op"`
	Result string    `json:"result"`
	Code   string    `json:"code,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Config configures the journal.
type Config struct {
	// Dir is the Badger directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps the journal in memory only.
	InMemory bool
	// Keep is the number of newest events retained by the maintenance loop.
	// Zero keeps everything.
	Keep int
	// GCInterval is how often value-log GC and pruning run.
	GCInterval string
	// GCThreshold is the value-log discard ratio passed to Badger.
	GCThreshold float64
	// SyncWrites makes every event durable before Record returns.
	SyncWrites bool
}

// DefaultConfig returns the default journal configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Keep:        DefaultKeep,
		GCInterval:  "10m",
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// Stats contains journal storage statistics.
type Stats struct {
	LSMSize          uint64
	ValueLogSize     uint64
	TotalSize        uint64
	LastGCTime       int64
	GCBytesReclaimed uint64
}

// Journal is a Badger-backed event journal.
type Journal struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	entropyMu sync.Mutex
	entropy   io.Reader

	lastGCTime       atomic.Int64
	gcBytesReclaimed atomic.Uint64
	closed           atomic.Bool

	// Set once by RegisterMetrics; the maintenance loop may already be
	// running, so readers load it atomically.
	metrics atomic.Pointer[journalMetrics]

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens or creates the journal.
func Open(cfg Config, logger *slog.Logger) (*Journal, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("history: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	// The journal is tiny; keep Badger's footprint small.
	opts.ValueLogFileSize = 16 << 20
	opts.MemTableSize = 8 << 20
	opts.BlockCacheSize = 0
	opts.IndexCacheSize = 0

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	j := &Journal{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go j.maintenanceLoop()

	logger.Info("history journal opened", "dir", cfg.Dir, "in_memory", cfg.InMemory, "keep", cfg.Keep)
	return j, nil
}

func (j *Journal) newID(t time.Time) (string, error) {
	j.entropyMu.Lock()
	defer j.entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), j.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record appends ev, filling in its ID and time.
func (j *Journal) Record(ctx context.Context, ev Event) (Event, error) {
	if j.closed.Load() {
		return ev, ErrClosed
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.Result == "" {
		ev.Result = ResultOK
	}

	id, err := j.newID(ev.Time)
	if err != nil {
		return ev, fmt.Errorf("history: new id: %w", err)
	}
	ev.ID = id

	value, err := json.Marshal(ev)
	if err != nil {
		return ev, fmt.Errorf("history: marshal event: %w", err)
	}

	key := append(append([]byte{}, keyPrefix...), id...)
	if err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return ev, fmt.Errorf("history: write event: %w", err)
	}

	if m := j.metrics.Load(); m != nil {
		m.events.WithLabelValues(ev.Op, ev.Result).Inc()
	}
	return ev, nil
}

// List returns up to limit events, newest first. A limit of zero or less
// returns every event.
func (j *Journal) List(ctx context.Context, limit int) ([]Event, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	var events []Event
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, keyPrefix...), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var ev Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("history: decode %s: %w", it.Item().Key(), err)
			}
			events = append(events, ev)

			if limit > 0 && len(events) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Prune deletes all but the newest keep events and returns how many were
// removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	var stale [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		seek := append(append([]byte{}, keyPrefix...), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("history: prune: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}

	j.logger.Info("pruned history events", "deleted_count", len(stale), "kept", keep)
	return len(stale), nil
}

// GC runs value-log garbage collection until Badger has nothing to rewrite.
func (j *Journal) GC(ctx context.Context) (uint64, error) {
	if j.cfg.InMemory {
		return 0, nil
	}

	threshold := j.cfg.GCThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	var reclaimed uint64
	for {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		err := j.db.RunValueLogGC(threshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return reclaimed, fmt.Errorf("history: gc: %w", err)
		}
		// Badger does not report reclaimed bytes; count one value-log file.
		reclaimed += uint64(16 << 20)
	}

	j.lastGCTime.Store(time.Now().UnixMilli())
	j.gcBytesReclaimed.Add(reclaimed)
	return reclaimed, nil
}

// Stats returns journal storage statistics.
func (j *Journal) Stats() *Stats {
	lsm, vlog := j.db.Size()
	return &Stats{
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		TotalSize:        uint64(lsm + vlog),
		LastGCTime:       j.lastGCTime.Load(),
		GCBytesReclaimed: j.gcBytesReclaimed.Load(),
	}
}

// Close stops maintenance and closes the database.
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(j.stopCh)
	<-j.doneCh

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("history: close db: %w", err)
	}
	j.logger.Info("history journal closed")
	return nil
}

type journalMetrics struct {
	events       *prometheus.CounterVec
	totalSize    prometheus.Gauge
	valueLogSize prometheus.Gauge
	lastGCTime   prometheus.Gauge
}

// RegisterMetrics registers journal metrics with registry.
// Returns the journal for method chaining.
func (j *Journal) RegisterMetrics(registry prometheus.Registerer) *Journal {
	m := &journalMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkpoint",
			Subsystem: "history",
			Name:      "events_total",
			Help:      "Lifecycle events recorded in the history journal",
		}, []string{"op", "result"}),
		totalSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "checkpoint",
			Subsystem: "history",
			Name:      "size_bytes",
			Help:      "History journal size in bytes (LSM + value log)",
		}),
		valueLogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "checkpoint",
			Subsystem: "history",
			Name:      "value_log_size_bytes",
			Help:      "History journal value log size in bytes",
		}),
		lastGCTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "checkpoint",
			Subsystem: "history",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last journal GC run",
		}),
	}

	registry.MustRegister(m.events, m.totalSize, m.valueLogSize, m.lastGCTime)
	j.metrics.Store(m)
	j.updateGauges()
	return j
}

func (j *Journal) updateGauges() {
	m := j.metrics.Load()
	if m == nil {
		return
	}
	stats := j.Stats()
	m.totalSize.Set(float64(stats.TotalSize))
	m.valueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		m.lastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

// maintenanceLoop prunes, collects garbage and refreshes gauges.
func (j *Journal) maintenanceLoop() {
	defer close(j.doneCh)

	interval, err := time.ParseDuration(j.cfg.GCInterval)
	if err != nil || interval <= 0 {
		if j.cfg.GCInterval != "" {
			j.logger.Error("invalid gc_interval, using default 10m", "error", err)
		}
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := j.Prune(ctx, j.cfg.Keep); err != nil {
				j.logger.Error("history prune failed", "error", err)
			}
			if _, err := j.GC(ctx); err != nil {
				j.logger.Error("history gc failed", "error", err)
			}
			cancel()
			j.updateGauges()

		case <-j.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
