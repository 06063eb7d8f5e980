package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/recorder"
)

var (
	_ core.SessionStore    = (*Store)(nil)
	_ recorder.EventWriter = (*Store)(nil)
)

// Store persists import sessions and recorded events.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// Queries exposes the pool-bound queries.
func (s *Store) Queries() *Queries { return s.q }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) FindSession(ctx context.Context, objectKey, etag string) (core.ImportSession, bool, error) {
	row, err := s.q.GetUploadSessionBySource(ctx, GetUploadSessionBySourceParams{
		SourceObjectKey: nullableText(objectKey),
		SourceEtag:      nullableText(etag),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ImportSession{}, false, nil
	}
	if err != nil {
		return core.ImportSession{}, false, err
	}
	return core.ImportSession{
		ID:               uuid.UUID(row.ID.Bytes),
		Timestamp:        row.TimeStamp.Time,
		SourceFileName:   row.SourceFileName,
		SourceObjectKey:  row.SourceObjectKey.String,
		SourceETag:       row.SourceEtag.String,
		IdpEntityID:      row.IdpEntityID,
		UserID:           row.Userid,
		PassedValidation: row.PassedValidation,
	}, true, nil
}

func (s *Store) Begin(ctx context.Context) (core.SessionTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &sessionTx{tx: tx, q: s.q.WithTx(tx)}, nil
}

// sessionTx is one unit of work of an import.
type sessionTx struct {
	tx pgx.Tx
	q  *Queries
}

func (t *sessionTx) InsertSession(ctx context.Context, session core.ImportSession) error {
	return t.q.InsertUploadSession(ctx, InsertUploadSessionParams{
		ID:               pgUUID(session.ID),
		TimeStamp:        timestamptz(session.Timestamp),
		SourceFileName:   session.SourceFileName,
		SourceObjectKey:  nullableText(session.SourceObjectKey),
		SourceEtag:       nullableText(session.SourceETag),
		IdpEntityID:      session.IdpEntityID,
		Userid:           session.UserID,
		PassedValidation: session.PassedValidation,
	})
}

func (t *sessionTx) InsertFraudEvent(ctx context.Context, sessionID uuid.UUID, event core.FraudEvent) (int64, error) {
	return t.q.InsertIdpFraudEvent(ctx, InsertIdpFraudEventParams{
		IdpEntityID:     event.IdpEntityID,
		IdpEventID:      event.IdpEventID,
		TimeStamp:       timestamptz(event.Timestamp),
		FidCode:         text(event.FidCode),
		RequestID:       text(event.RequestID),
		Pid:             text(event.PID),
		ClientIpAddress: text(event.ClientIPAddress),
		ContraScore:     int32(event.ContraScore),
		UploadSessionID: pgUUID(sessionID),
	})
}

func (t *sessionTx) InsertContraIndicators(ctx context.Context, eventID int64, counts []core.ContraIndicatorCount) error {
	for _, c := range counts {
		if err := t.q.InsertContraIndicator(ctx, InsertContraIndicatorParams{
			IdpFraudEventsID:    eventID,
			ContraindicatorCode: c.Code,
			Count:               int32(c.Count),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (t *sessionTx) InsertValidationFailure(ctx context.Context, sessionID uuid.UUID, failure core.ValidationFailure) error {
	return t.q.InsertValidationFailure(ctx, InsertValidationFailureParams{
		UploadSessionID: pgUUID(sessionID),
		Row:             int32(failure.Row),
		Field:           failure.Field,
		Message:         failure.Message,
	})
}

func (t *sessionTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *sessionTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// ============================================================================
// Event recorder writes. Each runs in its own implicit transaction.
// ============================================================================

func (s *Store) WriteAuditEvent(ctx context.Context, e recorder.Event) (bool, error) {
	return stored(s.q.InsertAuditEvent(ctx, InsertAuditEventParams{
		EventID:            e.EventID,
		EventType:          e.EventType,
		TimeStamp:          timestamptz(e.Time()),
		OriginatingService: e.OriginatingService,
		SessionID:          e.SessionID,
		Details:            e.Details,
	}))
}

func (s *Store) WriteBillingEvent(ctx context.Context, e recorder.BillingEvent) (bool, error) {
	return stored(s.q.InsertBillingEvent(ctx, InsertBillingEventParams{
		TimeStamp:                 timestamptz(e.Timestamp),
		SessionID:                 e.SessionID,
		HashedPersistentID:        e.HashedPersistentID,
		RequestID:                 e.RequestID,
		IdpEntityID:               e.IdpEntityID,
		MinimumLevelOfAssurance:   e.MinimumLevelOfAssurance,
		PreferredLevelOfAssurance: e.PreferredLevelOfAssurance,
		ProvidedLevelOfAssurance:  e.ProvidedLevelOfAssurance,
		EventID:                   e.EventID,
		TransactionEntityID:       e.TransactionEntityID,
	}))
}

func (s *Store) WriteFraudEvent(ctx context.Context, e recorder.FraudEvent) (bool, error) {
	return stored(s.q.InsertFraudEvent(ctx, InsertFraudEventParams{
		EventID:             e.EventID,
		TimeStamp:           timestamptz(e.Timestamp),
		SessionID:           e.SessionID,
		HashedPersistentID:  e.HashedPersistentID,
		RequestID:           e.RequestID,
		EntityID:            e.EntityID,
		FraudEventID:        e.FraudEventID,
		FraudIndicator:      e.FraudIndicator,
		TransactionEntityID: e.TransactionEntityID,
	}))
}

// stored maps a unique violation to (false, nil): the row already exists.
func stored(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case IsUniqueViolation(err):
		return false, nil
	default:
		return false, err
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
