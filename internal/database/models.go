package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type IdpDataUploadSession struct {
	ID               pgtype.UUID
	TimeStamp        pgtype.Timestamptz
	SourceFileName   string
	SourceObjectKey  pgtype.Text
	SourceEtag       pgtype.Text
	IdpEntityID      string
	Userid           string
	PassedValidation bool
}

type IdpDataIdpFraudEvent struct {
	ID              int64
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

type IdpDataIdpFraudEventContraindicator struct {
	IdpFraudEventsID    int64
	ContraindicatorCode string
	Count               int32
}

type IdpDataUploadSessionValidationFailure struct {
	ID              int64
	UploadSessionID pgtype.UUID
	Row             int32
	Field           string
	Message         string
}
