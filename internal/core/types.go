package core

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ImportPhase indicates the stage of a file import.
type ImportPhase string

const (
	PhaseStarted   ImportPhase = "started"
	PhaseParsing   ImportPhase = "parsing"
	PhaseCommitted ImportPhase = "committed"
	PhaseFailed    ImportPhase = "failed"
)

// RowExceptionField is the field label stored with every row-level failure.
const RowExceptionField = "**Row Exception**"

// ImportSession is the durable record of one file-import attempt.
type ImportSession struct {
	ID               uuid.UUID
	Timestamp        time.Time
	SourceFileName   string
	SourceObjectKey  string
	SourceETag       string
	IdpEntityID      string
	UserID           string
	PassedValidation bool
}

// FraudEvent is one parsed data line, ready to persist.
type FraudEvent struct {
	IdpEntityID      string
	IdpEventID       string
	Timestamp        time.Time
	FidCode          string
	RequestID        string
	PID              string
	ClientIPAddress  string
	ContraScore      int
	ContraIndicators []ContraIndicatorCount
}

// ContraIndicatorCount is the number of times a code appeared in one row.
type ContraIndicatorCount struct {
	Code  string
	Count int
}

// ValidationFailure is the first row failure of a rejected file.
type ValidationFailure struct {
	Row     int
	Field   string
	Message string
}

// ImportResult summarises a finished import.
type ImportResult struct {
	SessionID     uuid.UUID
	Phase         ImportPhase
	EventsWritten int
	Failure       *ValidationFailure
	Destination   string
	BytesRead     int64

	// Skipped is set when the object was already recorded by an earlier
	// attempt and only relocation ran.
	Skipped bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ETag string
	Size int64
}

// SessionStore persists import sessions. Each Begin returns an independent
// unit of work; implementations must not share transaction state between them.
type SessionStore interface {
	Ping(ctx context.Context) error

	// FindSession returns the session previously recorded for an object
	// version, or found=false.
	FindSession(ctx context.Context, objectKey, etag string) (session ImportSession, found bool, err error)

	Begin(ctx context.Context) (SessionTx, error)
}

// SessionTx is one unit of work against the session store.
type SessionTx interface {
	InsertSession(ctx context.Context, session ImportSession) error
	InsertFraudEvent(ctx context.Context, sessionID uuid.UUID, event FraudEvent) (int64, error)
	InsertContraIndicators(ctx context.Context, eventID int64, counts []ContraIndicatorCount) error
	InsertValidationFailure(ctx context.Context, sessionID uuid.UUID, failure ValidationFailure) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ObjectStore reads, tags and relocates source files.
type ObjectStore interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Tags(ctx context.Context, bucket, key string) (map[string]string, error)

	// Move leaves the object at dstKey and removes srcKey.
	Move(ctx context.Context, bucket, srcKey, dstKey string) error
}
