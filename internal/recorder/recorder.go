package recorder

import (
	"context"
	"fmt"
	"log/slog"
)

// EventWriter persists events. Each write is its own unit of work. A false
// result with a nil error means the event id was already stored.
type EventWriter interface {
	WriteAuditEvent(ctx context.Context, e Event) (bool, error)
	WriteBillingEvent(ctx context.Context, e BillingEvent) (bool, error)
	WriteFraudEvent(ctx context.Context, e FraudEvent) (bool, error)
}

// Recorder writes an event to the audit log and, depending on its type,
// to the billing or fraud tables.
type Recorder struct {
	writer EventWriter
}

func New(writer EventWriter) *Recorder {
	return &Recorder{writer: writer}
}

// Record stores e. With gated set, billing and fraud rows are written only
// when the audit row is new, so a replayed export cannot double-bill.
func (r *Recorder) Record(ctx context.Context, logger *slog.Logger, e Event, gated bool) error {
	stored, err := r.writer.WriteAuditEvent(ctx, e)
	if err != nil {
		return fmt.Errorf("audit event %s: %w", e.EventID, err)
	}
	if !stored {
		logger.Warn(fmt.Sprintf("Failed to store an audit event. The Event ID %s already exists in the database", e.EventID))
		if gated {
			return nil
		}
	}
	if !gated {
		logger.Info("Stored audit event: " + e.EventID)
	}

	if e.Billable() {
		if err := r.writeBilling(ctx, logger, e); err != nil {
			return err
		}
		if !gated {
			logger.Info("Stored billing event: " + e.EventID)
		}
	}
	if e.Fraud() {
		if err := r.writeFraud(ctx, logger, e); err != nil {
			return err
		}
		if !gated {
			logger.Info("Stored fraud event: " + e.EventID)
		}
	}
	return nil
}

func (r *Recorder) writeBilling(ctx context.Context, logger *slog.Logger, e Event) error {
	row, err := e.BillingEvent()
	if err != nil {
		logger.Warn(fmt.Sprintf("Failed to store a billing event [Event ID %s] due to key error", e.EventID), "error", err)
		return err
	}
	stored, err := r.writer.WriteBillingEvent(ctx, row)
	if err != nil {
		return fmt.Errorf("billing event %s: %w", e.EventID, err)
	}
	if !stored {
		logger.Warn(fmt.Sprintf("Failed to store a billing event. The Event ID %s already exists in the database", e.EventID))
	}
	return nil
}

func (r *Recorder) writeFraud(ctx context.Context, logger *slog.Logger, e Event) error {
	row, err := e.FraudEvent()
	if err != nil {
		logger.Warn(fmt.Sprintf("Failed to store a fraud event [Event ID %s] due to key error", e.EventID), "error", err)
		return err
	}
	stored, err := r.writer.WriteFraudEvent(ctx, row)
	if err != nil {
		return fmt.Errorf("fraud event %s: %w", e.EventID, err)
	}
	if !stored {
		logger.Warn(fmt.Sprintf("Failed to store a fraud event. The Event ID %s already exists in the database", e.EventID))
	}
	return nil
}
