package session

import (
	"context"
	"log/slog"
	"time"
)

// Recorder writes relay activity to the store. Store failures are logged and never
// reach the connection that produced them.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.With("component", "session_recorder")}
}

func (r *Recorder) Started(ctx context.Context, id, remoteAddr string) {
	if err := r.store.CreateSession(ctx, &Session{ID: id, RemoteAddr: remoteAddr}); err != nil {
		r.logger.Warn("failed to create session record", "session_id", id, "error", err)
	}
}

func (r *Recorder) Configured(ctx context.Context, id, sourceLang, targetLang string) {
	if err := r.store.UpdateLanguages(ctx, id, sourceLang, targetLang); err != nil {
		r.logger.Warn("failed to update session languages", "session_id", id, "error", err)
	}
}

func (r *Recorder) Ended(ctx context.Context, id string, status Status, reason string) {
	if err := r.store.EndSession(ctx, id, status, reason); err != nil {
		r.logger.Warn("failed to end session record", "session_id", id, "error", err)
	}
}

func (r *Recorder) Count(ctx context.Context, field string) {
	if err := r.store.IncrementMetric(ctx, field, 1); err != nil {
		r.logger.Warn("failed to increment metric", "field", field, "error", err)
	}
}

func (r *Recorder) Latency(ctx context.Context, d time.Duration) {
	if err := r.store.RecordLatency(ctx, d); err != nil {
		r.logger.Warn("failed to record latency", "error", err)
	}
}
