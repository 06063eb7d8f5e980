package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/logging"
)

// Service imports fraud-data files from object storage into the session store.
// It is safe for concurrent use; each ImportObject call owns its units of work.
type Service struct {
	store      SessionStore
	objects    ObjectStore
	cfg        config.ImportConfig
	normalizer *TimestampNormalizer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the base logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an import service.
func NewService(store SessionStore, objects ObjectStore, cfg config.ImportConfig, opts ...Option) (*Service, error) {
	if store == nil || objects == nil {
		return nil, errors.New("core: session store and object store are required")
	}
	if cfg.SuccessPrefix == "" {
		cfg.SuccessPrefix = "success"
	}
	if cfg.ErrorPrefix == "" {
		cfg.ErrorPrefix = "error"
	}

	normalizer, err := NewTimestampNormalizer(cfg.DefaultTimeZone)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:      store,
		objects:    objects,
		cfg:        cfg,
		normalizer: normalizer,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ImportObject runs one file through STARTED → PARSING → COMMITTED|FAILED
// and then relocates it.
//
// A file with a bad row is not an error: the result carries the recorded
// ValidationFailure and the file is moved to the error folder. Errors are
// returned for metadata, persistence and relocation faults only. A
// relocation fault still returns the result, because the outcome is durable.
func (s *Service) ImportObject(ctx context.Context, bucket, key string) (*ImportResult, error) {
	logger := logging.Enrich(ctx, s.logger).With("bucket", bucket, "key", key)

	if s.relocatedAlready(key) {
		logger.Warn("Ignoring object already in a destination folder")
		return &ImportResult{Skipped: true, Destination: key}, nil
	}

	// STARTED
	if err := s.store.Ping(ctx); err != nil {
		return nil, s.fault(logger, &PersistenceError{Op: "connect", Err: err})
	}
	logger.Info("Created connection to DB")

	tags, err := s.objects.Tags(ctx, bucket, key)
	if err != nil {
		return nil, s.fault(logger, fmt.Errorf("reading tags of %s/%s: %w", bucket, key, err))
	}
	opts, err := s.resolveOptions(bucket, key, tags)
	if err != nil {
		return nil, s.fault(logger, err)
	}

	body, info, err := s.objects.Open(ctx, bucket, key)
	if err != nil {
		return nil, s.fault(logger, fmt.Errorf("opening %s/%s: %w", bucket, key, err))
	}
	defer body.Close()

	// Without an ETag there is no object version to match against.
	if info.ETag != "" {
		prev, found, err := s.store.FindSession(ctx, key, info.ETag)
		if err != nil {
			return nil, s.fault(logger, &PersistenceError{Op: "find session", Err: err})
		}
		if found {
			return s.relocateRecorded(ctx, logger, bucket, key, prev)
		}
	}

	logger.Info(fmt.Sprintf("Processing data for IDP %s", opts.idpEntityID), "idp", opts.idpEntityID)

	session := ImportSession{
		ID:              uuid.New(),
		Timestamp:       s.now().UTC(),
		SourceFileName:  path.Base(key),
		SourceObjectKey: key,
		SourceETag:      info.ETag,
		IdpEntityID:     opts.idpEntityID,
		UserID:          opts.userID,
	}

	reader := NewBodyReader(body)
	result, err := s.importFile(ctx, logger, session, reader, opts)
	if err != nil {
		return nil, s.fault(logger, err)
	}
	result.BytesRead = reader.BytesRead()

	dst, err := s.relocate(ctx, bucket, key, result.Phase == PhaseCommitted)
	if err != nil {
		return result, s.fault(logger, err)
	}
	result.Destination = dst
	logger.Info("Relocated source file", "destination", dst, "events", result.EventsWritten, "bytes", result.BytesRead)
	return result, nil
}

// importFile runs both units of work and returns the terminal phase.
func (s *Service) importFile(ctx context.Context, logger *slog.Logger, session ImportSession, body io.Reader, opts importOptions) (*ImportResult, error) {
	result := &ImportResult{SessionID: session.ID, Phase: PhaseStarted}

	// Unit of work #1: session and every event, or nothing.
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}

	session.PassedValidation = true
	if err := tx.InsertSession(ctx, session); err != nil {
		s.rollback(ctx, logger, tx)
		return nil, &PersistenceError{Op: "insert session", Err: err}
	}

	result.Phase = PhaseParsing
	written, rowErr, err := s.writeEvents(ctx, logger, tx, session, body, opts)
	result.EventsWritten = written
	if err != nil {
		s.rollback(ctx, logger, tx)
		return nil, err
	}

	if rowErr == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, &PersistenceError{Op: "commit", Err: err}
		}
		result.Phase = PhaseCommitted
		logger.Info("Processing successful", "session_id", session.ID, "events", written)
		return result, nil
	}

	// FAILED: release the aborted unit of work before recording why.
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		return nil, &PersistenceError{Op: "rollback", Err: err}
	}
	result.EventsWritten = 0

	logger.Error(rowErr.Message, "row", rowErr.Row, "code", ErrorCode(rowErr))

	failure := rowErr.Failure()
	if err := s.recordFailure(ctx, logger, session, failure); err != nil {
		return nil, err
	}
	result.Phase = PhaseFailed
	result.Failure = &failure
	logger.Warn("Processing Failed", "session_id", session.ID)
	return result, nil
}

// writeEvents streams records into tx until the end of the file or the
// first bad row. A non-nil error means the unit of work itself failed.
func (s *Service) writeEvents(ctx context.Context, logger *slog.Logger, tx SessionTx, session ImportSession, body io.Reader, opts importOptions) (int, *RowError, error) {
	r := csv.NewReader(body)
	r.Comma = opts.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	written := 0
	skipHeader := opts.hasHeader
	// line counts records, header included; quoted line breaks do not advance it.
	line := 0

	for {
		if err := ctx.Err(); err != nil {
			return written, nil, &PersistenceError{Op: "parse", Err: err}
		}

		record, err := r.Read()
		if err == io.EOF {
			return written, nil, nil
		}
		line++
		if err != nil {
			return written, newRowError(line, err), nil
		}

		if skipHeader {
			skipHeader = false
			continue
		}

		event, rowErr := s.buildEvent(line, record, opts)
		if rowErr != nil {
			return written, rowErr, nil
		}

		id, err := tx.InsertFraudEvent(ctx, session.ID, event)
		if err != nil {
			return written, newRowError(line, err), nil
		}
		if len(event.ContraIndicators) > 0 {
			if err := tx.InsertContraIndicators(ctx, id, event.ContraIndicators); err != nil {
				return written, newRowError(line, err), nil
			}
		}

		written++
		logger.Info(fmt.Sprintf("Successfully wrote IDP fraud event ID %s to database.", event.IdpEventID),
			"row", line, "event_id", id)
	}
}

// buildEvent runs the row parser, timestamp normalizer and aggregator.
func (s *Service) buildEvent(line int, record []string, opts importOptions) (FraudEvent, *RowError) {
	raw, err := ParseRow(line, record)
	if err != nil {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			return FraudEvent{}, rowErr
		}
		return FraudEvent{}, newRowError(line, err)
	}

	ts, err := opts.normalizer.Normalize(raw.EventTime)
	if err != nil {
		return FraudEvent{}, newRowError(line, err)
	}

	return FraudEvent{
		IdpEntityID:      opts.idpEntityID,
		IdpEventID:       raw.EventID,
		Timestamp:        ts,
		FidCode:          raw.FidCode,
		RequestID:        raw.RequestID,
		PID:              raw.PID,
		ClientIPAddress:  raw.ClientIPAddress,
		ContraScore:      raw.ContraScore,
		ContraIndicators: AggregateContraIndicators(raw.ContraIndicators),
	}, nil
}

// recordFailure is unit of work #2: the rejected session and its failure.
func (s *Service) recordFailure(ctx context.Context, logger *slog.Logger, session ImportSession, failure ValidationFailure) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return &PersistenceError{Op: "begin failure record", Err: err}
	}

	session.PassedValidation = false
	if err := tx.InsertSession(ctx, session); err != nil {
		s.rollback(ctx, logger, tx)
		return &PersistenceError{Op: "insert failed session", Err: err}
	}
	if err := tx.InsertValidationFailure(ctx, session.ID, failure); err != nil {
		s.rollback(ctx, logger, tx)
		return &PersistenceError{Op: "insert validation failure", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &PersistenceError{Op: "commit failure record", Err: err}
	}
	return nil
}

// relocateRecorded finishes an object whose outcome an earlier attempt
// already committed.
func (s *Service) relocateRecorded(ctx context.Context, logger *slog.Logger, bucket, key string, prev ImportSession) (*ImportResult, error) {
	logger.Info("Import session already recorded, relocating only",
		"session_id", prev.ID, "passed_validation", prev.PassedValidation)

	result := &ImportResult{SessionID: prev.ID, Phase: PhaseFailed, Skipped: true}
	if prev.PassedValidation {
		result.Phase = PhaseCommitted
	}

	dst, err := s.relocate(ctx, bucket, key, prev.PassedValidation)
	if err != nil {
		return result, s.fault(logger, err)
	}
	result.Destination = dst
	return result, nil
}

// rollback discards tx after a fault that is already being reported.
func (s *Service) rollback(ctx context.Context, logger *slog.Logger, tx SessionTx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("rollback failed", "error", err)
	}
}

// fault logs err with its operator code and returns it.
func (s *Service) fault(logger *slog.Logger, err error) error {
	logger.Error("import fault", "error", err, "code", ErrorCode(err))
	return err
}
