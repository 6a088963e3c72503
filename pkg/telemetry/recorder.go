// Package telemetry keeps a SQLite ledger of gateway call outcomes.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aura-edu/aura/pkg/models"
)

const queueSize = 256

// Recorder persists gateway call events. It satisfies gateway.Observer.
type Recorder struct {
	db            *sql.DB
	logger        *slog.Logger
	retentionDays int

	mu     sync.RWMutex
	closed bool
	events chan models.CallEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// New opens the ledger database, creates the schema and starts the writer
// and retention goroutines.
func New(dbPath string, retentionDays int, logger *slog.Logger) (*Recorder, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate telemetry db: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:            db,
		logger:        logger.With("component", "telemetry"),
		retentionDays: retentionDays,
		events:        make(chan models.CallEvent, queueSize),
		done:          make(chan struct{}),
	}

	r.wg.Add(2)
	go r.writeLoop()
	go r.retentionLoop()

	return r, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS gateway_calls (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint    TEXT NOT NULL,
		model          TEXT NOT NULL,
		outcome        TEXT NOT NULL,
		attempts       INTEGER NOT NULL DEFAULT 0,
		latency_ms     INTEGER NOT NULL DEFAULT 0,
		error          TEXT NOT NULL DEFAULT '',
		circuit_opened INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_calls_created ON gateway_calls(created_at)`)
	return err
}

// Observe queues ev for the background writer. Events are dropped when the
// queue is full or the recorder is closed.
func (r *Recorder) Observe(ev models.CallEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("telemetry queue full, dropping event", "outcome", ev.Outcome, "model", ev.Model)
	}
}

// Record writes ev synchronously.
func (r *Recorder) Record(ctx context.Context, ev models.CallEvent) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gateway_calls
		(fingerprint, model, outcome, attempts, latency_ms, error, circuit_opened, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Fingerprint, ev.Model, string(ev.Outcome), ev.Attempts,
		ev.Latency.Milliseconds(), ev.Error, ev.CircuitOpened, created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Summary aggregates calls since the given time by model and outcome.
func (r *Recorder) Summary(ctx context.Context, since time.Time) ([]models.OutcomeSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model, outcome, COUNT(*), COALESCE(SUM(attempts), 0),
		        COALESCE(AVG(latency_ms), 0), COALESCE(SUM(circuit_opened), 0)
		 FROM gateway_calls WHERE created_at >= ?
		 GROUP BY model, outcome ORDER BY model, outcome`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.OutcomeSummary
	for rows.Next() {
		var s models.OutcomeSummary
		var outcome string
		if err := rows.Scan(&s.Model, &outcome, &s.Calls, &s.TotalAttempts, &s.AvgLatencyMs, &s.CircuitOpens); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Outcome = models.Outcome(outcome)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the latest calls, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.CallEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT fingerprint, model, outcome, attempts, latency_ms, error, circuit_opened, created_at
		 FROM gateway_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent calls: %w", err)
	}
	defer rows.Close()

	var events []models.CallEvent
	for rows.Next() {
		var ev models.CallEvent
		var outcome string
		var latencyMs int64
		if err := rows.Scan(&ev.Fingerprint, &ev.Model, &outcome, &ev.Attempts,
			&latencyMs, &ev.Error, &ev.CircuitOpened, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		ev.Outcome = models.Outcome(outcome)
		ev.Latency = time.Duration(latencyMs) * time.Millisecond
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Cleanup deletes calls older than the retention period. A retention of
// zero days keeps everything.
func (r *Recorder) Cleanup(ctx context.Context) (int64, error) {
	if r.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -r.retentionDays)
	res, err := r.db.ExecContext(ctx, `DELETE FROM gateway_calls WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("telemetry cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close flushes queued events, stops the background goroutines and closes
// the database.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.events)
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return r.db.Close()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for ev := range r.events {
		if err := r.Record(context.Background(), ev); err != nil {
			r.logger.Error("write call event", "error", err)
		}
	}
}

func (r *Recorder) retentionLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if n, err := r.Cleanup(context.Background()); err != nil {
				r.logger.Error("telemetry cleanup", "error", err)
			} else if n > 0 {
				r.logger.Info("telemetry cleanup", "deleted", n)
			}
		}
	}
}
