package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditEvent = `-- name: InsertAuditEvent :exec
INSERT INTO audit.audit_events (
    event_id, event_type, time_stamp, originating_service, session_id, details
) VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertAuditEventParams struct {
	EventID            string
	EventType          string
	TimeStamp          pgtype.Timestamptz
	OriginatingService string
	SessionID          string
	Details            []byte
}

func (q *Queries) InsertAuditEvent(ctx context.Context, arg InsertAuditEventParams) error {
	_, err := q.db.Exec(ctx, insertAuditEvent,
		arg.EventID,
		arg.EventType,
		arg.TimeStamp,
		arg.OriginatingService,
		arg.SessionID,
		arg.Details,
	)
	return err
}

const insertBillingEvent = `-- name: InsertBillingEvent :exec
INSERT INTO billing.billing_events (
    time_stamp, session_id, hashed_persistent_id, request_id, idp_entity_id,
    minimum_level_of_assurance, preferred_level_of_assurance,
    provided_level_of_assurance, event_id, transaction_entity_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertBillingEventParams struct {
	TimeStamp                 pgtype.Timestamptz
	SessionID                 string
	HashedPersistentID        string
	RequestID                 string
	IdpEntityID               string
	MinimumLevelOfAssurance   string
	PreferredLevelOfAssurance string
	ProvidedLevelOfAssurance  string
	EventID                   string
	TransactionEntityID       string
}

func (q *Queries) InsertBillingEvent(ctx context.Context, arg InsertBillingEventParams) error {
	_, err := q.db.Exec(ctx, insertBillingEvent,
		arg.TimeStamp,
		arg.SessionID,
		arg.HashedPersistentID,
		arg.RequestID,
		arg.IdpEntityID,
		arg.MinimumLevelOfAssurance,
		arg.PreferredLevelOfAssurance,
		arg.ProvidedLevelOfAssurance,
		arg.EventID,
		arg.TransactionEntityID,
	)
	return err
}

const insertFraudEvent = `-- name: InsertFraudEvent :exec
INSERT INTO billing.fraud_events (
    event_id, time_stamp, session_id, hashed_persistent_id, request_id,
    entity_id, fraud_event_id, fraud_indicator, transaction_entity_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertFraudEventParams struct {
	EventID             string
	TimeStamp           pgtype.Timestamptz
	SessionID           string
	HashedPersistentID  string
	RequestID           string
	EntityID            string
	FraudEventID        string
	FraudIndicator      string
	TransactionEntityID string
}

func (q *Queries) InsertFraudEvent(ctx context.Context, arg InsertFraudEventParams) error {
	_, err := q.db.Exec(ctx, insertFraudEvent,
		arg.EventID,
		arg.TimeStamp,
		arg.SessionID,
		arg.HashedPersistentID,
		arg.RequestID,
		arg.EntityID,
		arg.FraudEventID,
		arg.FraudIndicator,
		arg.TransactionEntityID,
	)
	return err
}
