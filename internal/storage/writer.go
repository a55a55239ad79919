package storage

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"safe-apple-bridge/internal/security"
)

// AuditWriter mirrors in-process audit entries into Postgres asynchronously.
// It implements security.AuditSink. The in-memory log is the source of truth;
// a full buffer here drops the database copy only.
type AuditWriter struct {
	db   *DB
	ch   chan *AuditRecord
	wg   sync.WaitGroup
	done chan struct{}
}

func NewAuditWriter(db *DB, bufferSize int) *AuditWriter {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &AuditWriter{
		db:   db,
		ch:   make(chan *AuditRecord, bufferSize),
		done: make(chan struct{}),
	}
}

func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// WriteAudit queues an entry for persistence. Never blocks.
func (w *AuditWriter) WriteAudit(e security.AuditEntry) {
	rec := &AuditRecord{
		ID:        uuid.New().String(),
		Operation: e.Operation,
		UserName:  e.User,
		Details:   e.Details,
		Success:   e.Success,
		Error:     e.Error,
		CreatedAt: e.Timestamp,
	}
	select {
	case w.ch <- rec:
	default:
		log.Warn().Str("operation", rec.Operation).Msg("audit buffer full, dropping database copy")
	}
}

func (w *AuditWriter) Flush(timeout time.Duration) {
	close(w.done)

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("audit writer flushed")
	case <-time.After(timeout):
		log.Warn().Msg("audit writer flush timed out")
	}
}

func (w *AuditWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case rec := <-w.ch:
			w.writeWithRetry(rec)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case rec := <-w.ch:
					w.writeWithRetry(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) writeWithRetry(rec *AuditRecord) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.db.InsertAudit(ctx, rec)
		cancel()

		if err == nil {
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			log.Warn().
				Err(err).
				Str("audit_id", rec.ID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("audit write failed, retrying")
			time.Sleep(backoff)
		} else {
			log.Error().
				Err(err).
				Str("audit_id", rec.ID).
				Msg("audit write failed permanently after retries")
		}
	}
}
