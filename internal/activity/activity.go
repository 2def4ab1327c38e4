// Package activity records what clients did with the extraction API.
// Recording is best effort: a failure is logged and never reaches the caller.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type identifies a kind of activity.
type Type string

const (
	PDFUpload      Type = "pdf_upload"
	PDFBatchUpload Type = "pdf_batch_upload"
	PDFExtract     Type = "pdf_extract"
	PDFBatch       Type = "pdf_batch_extract"
)

// Entry is one recorded activity.
type Entry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        Type           `json:"activity_type" validate:"required"`
	Description string         `json:"description" validate:"required,max=500"`
	Details     map[string]any `json:"details,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder stores activity entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// MemoryStore keeps entries in memory, newest last, up to a fixed capacity.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	validate *validator.Validate
}

// NewMemoryStore creates a store; capacity <= 0 means 1000.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{capacity: capacity, validate: validator.New()}
}

// Record validates and appends e, assigning an ID and timestamp when missing.
func (s *MemoryStore) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validate.Struct(e); err != nil {
		return fmt.Errorf("invalid activity: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append(s.entries[:0:0], s.entries[over:]...)
	}
	return nil
}

// List returns up to limit entries for userID (all users when empty), newest first.
func (s *MemoryStore) List(userID string, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Entry{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if userID != "" && s.entries[i].UserID != userID {
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// BestEffort records e and logs, but otherwise ignores, any failure.
func BestEffort(ctx context.Context, log *zap.Logger, rec Recorder, e Entry) {
	if rec == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Activity recorder panicked", zap.String("type", string(e.Type)), zap.Any("panic", r))
		}
	}()
	if err := rec.Record(ctx, e); err != nil {
		log.Warn("Failed to record activity", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
