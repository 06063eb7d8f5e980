package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getUploadSessionBySource = `-- name: GetUploadSessionBySource :one
SELECT id, time_stamp, source_file_name, source_object_key, source_etag,
       idp_entity_id, userid, passed_validation
  FROM idp_data.upload_sessions
 WHERE source_object_key = $1
   AND source_etag = $2
 ORDER BY time_stamp DESC
 LIMIT 1
`

type GetUploadSessionBySourceParams struct {
	SourceObjectKey pgtype.Text
	SourceEtag      pgtype.Text
}

func (q *Queries) GetUploadSessionBySource(ctx context.Context, arg GetUploadSessionBySourceParams) (IdpDataUploadSession, error) {
	row := q.db.QueryRow(ctx, getUploadSessionBySource, arg.SourceObjectKey, arg.SourceEtag)
	var i IdpDataUploadSession
	err := row.Scan(
		&i.ID,
		&i.TimeStamp,
		&i.SourceFileName,
		&i.SourceObjectKey,
		&i.SourceEtag,
		&i.IdpEntityID,
		&i.Userid,
		&i.PassedValidation,
	)
	return i, err
}

const insertUploadSession = `-- name: InsertUploadSession :exec
INSERT INTO idp_data.upload_sessions (
    id, time_stamp, source_file_name, source_object_key, source_etag,
    idp_entity_id, userid, passed_validation
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertUploadSessionParams struct {
	ID               pgtype.UUID
	TimeStamp        pgtype.Timestamptz
	SourceFileName   string
	SourceObjectKey  pgtype.Text
	SourceEtag       pgtype.Text
	IdpEntityID      string
	Userid           string
	PassedValidation bool
}

func (q *Queries) InsertUploadSession(ctx context.Context, arg InsertUploadSessionParams) error {
	_, err := q.db.Exec(ctx, insertUploadSession,
		arg.ID,
		arg.TimeStamp,
		arg.SourceFileName,
		arg.SourceObjectKey,
		arg.SourceEtag,
		arg.IdpEntityID,
		arg.Userid,
		arg.PassedValidation,
	)
	return err
}

const insertIdpFraudEvent = `-- name: InsertIdpFraudEvent :one
INSERT INTO idp_data.idp_fraud_events (
    idp_entity_id, idp_event_id, time_stamp, fid_code, request_id,
    pid, client_ip_address, contra_score, upload_session_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`

type InsertIdpFraudEventParams struct {
	IdpEntityID     string
	IdpEventID      string
	TimeStamp       pgtype.Timestamptz
	FidCode         pgtype.Text
	RequestID       pgtype.Text
	Pid             pgtype.Text
	ClientIpAddress pgtype.Text
	ContraScore     int32
	UploadSessionID pgtype.UUID
}

func (q *Queries) InsertIdpFraudEvent(ctx context.Context, arg InsertIdpFraudEventParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertIdpFraudEvent,
		arg.IdpEntityID,
		arg.IdpEventID,
		arg.TimeStamp,
		arg.FidCode,
		arg.RequestID,
		arg.Pid,
		arg.ClientIpAddress,
		arg.ContraScore,
		arg.UploadSessionID,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertContraIndicator = `-- name: InsertContraIndicator :exec
INSERT INTO idp_data.idp_fraud_event_contraindicators (
    idp_fraud_events_id, contraindicator_code, count
) VALUES ($1, $2, $3)
`

type InsertContraIndicatorParams struct {
	IdpFraudEventsID    int64
	ContraindicatorCode string
	Count               int32
}

func (q *Queries) InsertContraIndicator(ctx context.Context, arg InsertContraIndicatorParams) error {
	_, err := q.db.Exec(ctx, insertContraIndicator, arg.IdpFraudEventsID, arg.ContraindicatorCode, arg.Count)
	return err
}

const listContraIndicators = `-- name: ListContraIndicators :many
SELECT idp_fraud_events_id, contraindicator_code, count
  FROM idp_data.idp_fraud_event_contraindicators
 WHERE idp_fraud_events_id = $1
 ORDER BY contraindicator_code
`

func (q *Queries) ListContraIndicators(ctx context.Context, idpFraudEventsID int64) ([]IdpDataIdpFraudEventContraindicator, error) {
	rows, err := q.db.Query(ctx, listContraIndicators, idpFraudEventsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IdpDataIdpFraudEventContraindicator
	for rows.Next() {
		var i IdpDataIdpFraudEventContraindicator
		if err := rows.Scan(&i.IdpFraudEventsID, &i.ContraindicatorCode, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFraudEventsBySession = `-- name: ListFraudEventsBySession :many
SELECT id, idp_entity_id, idp_event_id, time_stamp, fid_code, request_id,
       pid, client_ip_address, contra_score, upload_session_id
  FROM idp_data.idp_fraud_events
 WHERE upload_session_id = $1
 ORDER BY id
`

func (q *Queries) ListFraudEventsBySession(ctx context.Context, uploadSessionID pgtype.UUID) ([]IdpDataIdpFraudEvent, error) {
	rows, err := q.db.Query(ctx, listFraudEventsBySession, uploadSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IdpDataIdpFraudEvent
	for rows.Next() {
		var i IdpDataIdpFraudEvent
		if err := rows.Scan(
			&i.ID,
			&i.IdpEntityID,
			&i.IdpEventID,
			&i.TimeStamp,
			&i.FidCode,
			&i.RequestID,
			&i.Pid,
			&i.ClientIpAddress,
			&i.ContraScore,
			&i.UploadSessionID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertValidationFailure = `-- name: InsertValidationFailure :exec
INSERT INTO idp_data.upload_session_validation_failures (
    upload_session_id, row, field, message
) VALUES ($1, $2, $3, $4)
`

type InsertValidationFailureParams struct {
	UploadSessionID pgtype.UUID
	Row             int32
	Field           string
	Message         string
}

func (q *Queries) InsertValidationFailure(ctx context.Context, arg InsertValidationFailureParams) error {
	_, err := q.db.Exec(ctx, insertValidationFailure, arg.UploadSessionID, arg.Row, arg.Field, arg.Message)
	return err
}

const listValidationFailures = `-- name: ListValidationFailures :many
SELECT id, upload_session_id, row, field, message
  FROM idp_data.upload_session_validation_failures
 WHERE upload_session_id = $1
 ORDER BY id
`

func (q *Queries) ListValidationFailures(ctx context.Context, uploadSessionID pgtype.UUID) ([]IdpDataUploadSessionValidationFailure, error) {
	rows, err := q.db.Query(ctx, listValidationFailures, uploadSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IdpDataUploadSessionValidationFailure
	for rows.Next() {
		var i IdpDataUploadSessionValidationFailure
		if err := rows.Scan(&i.ID, &i.UploadSessionID, &i.Row, &i.Field, &i.Message); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
