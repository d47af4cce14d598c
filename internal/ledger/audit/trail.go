package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// Trail appends stock movements. It has no update or delete: a mistake is
// corrected by recording a compensating entry.
type Trail struct {
	logs  domain.StockLogRepository
	clock domain.Clock
}

// NewTrail binds a trail to the repositories of the current unit of work
func NewTrail(repos domain.Repositories, clock domain.Clock) *Trail {
	return &Trail{logs: repos.StockLogs(), clock: clock}
}

// RecordOption decorates an entry before it is appended
type RecordOption func(entry *domain.StockLog)

// FromEvent tags the entry with the event that caused it. An event id can
// be recorded once.
func FromEvent(eventID string) RecordOption {
	return func(entry *domain.StockLog) {
		if eventID != "" {
			entry.SourceEventID = &eventID
		}
	}
}

// Record appends one entry for one product
func (t *Trail) Record(ctx context.Context, productID uint, delta int, changeType domain.StockChangeType, reason string, opts ...RecordOption) (*domain.StockLog, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if !changeType.Valid() {
		return nil, fmt.Errorf("%w: unknown stock change type %q", domain.ErrInvalidInput, changeType)
	}

	entry := &domain.StockLog{
		ProductID:      productID,
		QuantityChange: delta,
		Type:           changeType,
		Reason:         reason,
		CreatedAt:      t.now(),
	}
	for _, opt := range opts {
		opt(entry)
	}
	if err := t.logs.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record stock change: %w", err)
	}
	return entry, nil
}

// Applied reports whether an entry for eventID already exists
func (t *Trail) Applied(ctx context.Context, eventID string) (bool, error) {
	found, err := t.logs.ExistsForEvent(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to look up stock event: %w", err)
	}
	return found, nil
}

// History lists a product's entries, newest first
func (t *Trail) History(ctx context.Context, productID uint) ([]domain.StockLog, error) {
	logs, err := t.logs.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock history: %w", err)
	}
	return logs, nil
}

func (t *Trail) now() time.Time {
	if t.clock == nil {
		return time.Now().UTC()
	}
	return t.clock.Now()
}
