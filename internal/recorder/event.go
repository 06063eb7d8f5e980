// Package recorder stores Verify Hub events in the audit and billing
// schemas. Events reach it one at a time from an encrypted queue
// ([Consumer]) or in bulk from newline-delimited export files ([Importer]).
package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	EventTypeSession = "session_event"
	EventTypeError   = "error_event"

	SessionEventAuthnSucceeded = "idp_authn_succeeded"
	SessionEventFraudDetected  = "fraud_detected"
)

var requiredFields = []string{"eventId", "eventType", "timestamp", "originatingService", "details"}

// MissingFieldError rejects a message without one of the required fields.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Invalid Message. Missing required field %q", e.Field)
}

// MissingDetailError means a billing or fraud row could not be built
// because the event details lack a key.
type MissingDetailError struct {
	Kind    string
	EventID string
	Key     string
}

func (e *MissingDetailError) Error() string {
	return fmt.Sprintf("%s event %s: missing detail %q", e.Kind, e.EventID, e.Key)
}

// Event is a hub event as recorded in audit.audit_events.
type Event struct {
	EventID            string
	EventType          string
	Timestamp          int64 // epoch milliseconds
	OriginatingService string
	SessionID          string
	Details            json.RawMessage
}

// Time returns the event timestamp in UTC.
func (e Event) Time() time.Time { return time.UnixMilli(e.Timestamp).UTC() }

// SessionEventType is details.session_event_type, or "".
func (e Event) SessionEventType() string {
	return gjson.GetBytes(e.Details, "session_event_type").String()
}

// Billable reports whether the event also produces a billing row.
func (e Event) Billable() bool {
	return e.EventType == EventTypeSession && e.SessionEventType() == SessionEventAuthnSucceeded
}

// Fraud reports whether the event also produces a fraud row.
func (e Event) Fraud() bool {
	return e.EventType == EventTypeSession && e.SessionEventType() == SessionEventFraudDetected
}

// ParseEvent maps a JSON message to an Event.
func ParseEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return Event{}, errors.New("message is not valid JSON")
	}
	return eventFromObject(gjson.ParseBytes(data))
}

// ParseImportLine maps one export line, {"document": {...}}, to an Event.
func ParseImportLine(line []byte) (Event, error) {
	if !gjson.ValidBytes(line) {
		return Event{}, errors.New("line is not valid JSON")
	}
	doc := gjson.GetBytes(line, "document")
	if !doc.Exists() {
		return Event{}, &MissingFieldError{Field: "document"}
	}
	return eventFromObject(doc)
}

func eventFromObject(obj gjson.Result) (Event, error) {
	if !obj.IsObject() {
		return Event{}, errors.New("message is not a JSON object")
	}
	if missing, ok := lo.Find(requiredFields, func(f string) bool { return !obj.Get(f).Exists() }); ok {
		return Event{}, &MissingFieldError{Field: missing}
	}

	eventType := obj.Get("eventType").String()

	// Error events may be raised before a session exists.
	session := obj.Get("sessionId")
	if !session.Exists() && eventType != EventTypeError {
		return Event{}, &MissingFieldError{Field: "sessionId"}
	}

	ts, err := timestampMillis(obj.Get("timestamp"))
	if err != nil {
		return Event{}, err
	}

	return Event{
		EventID:            obj.Get("eventId").String(),
		EventType:          eventType,
		Timestamp:          ts,
		OriginatingService: obj.Get("originatingService").String(),
		SessionID:          session.String(),
		Details:            json.RawMessage(obj.Get("details").Raw),
	}, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// timestampMillis accepts epoch milliseconds or an ISO-8601 string.
// Strings without an offset are UTC.
func timestampMillis(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), nil
	case gjson.String:
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t.UnixMilli(), nil
			}
		}
		return 0, fmt.Errorf("unrecognised timestamp %q", v.Str)
	default:
		return 0, fmt.Errorf("unsupported timestamp %s", v.Raw)
	}
}

// BillingEvent is a row of billing.billing_events.
type BillingEvent struct {
	EventID                   string
	Timestamp                 time.Time
	SessionID                 string
	HashedPersistentID        string
	RequestID                 string
	IdpEntityID               string
	MinimumLevelOfAssurance   string
	PreferredLevelOfAssurance string
	ProvidedLevelOfAssurance  string
	TransactionEntityID       string
}

// FraudEvent is a row of billing.fraud_events.
type FraudEvent struct {
	EventID             string
	Timestamp           time.Time
	SessionID           string
	HashedPersistentID  string
	RequestID           string
	EntityID            string
	FraudEventID        string
	FraudIndicator      string
	TransactionEntityID string
}

// BillingEvent builds the billing row. Every detail key is required.
func (e Event) BillingEvent() (BillingEvent, error) {
	d, err := e.details("billing", "pid", "request_id", "idp_entity_id",
		"minimum_level_of_assurance", "preferred_level_of_assurance",
		"provided_level_of_assurance", "transaction_entity_id")
	if err != nil {
		return BillingEvent{}, err
	}
	return BillingEvent{
		EventID:                   e.EventID,
		Timestamp:                 e.Time(),
		SessionID:                 e.SessionID,
		HashedPersistentID:        d[0],
		RequestID:                 d[1],
		IdpEntityID:               d[2],
		MinimumLevelOfAssurance:   d[3],
		PreferredLevelOfAssurance: d[4],
		ProvidedLevelOfAssurance:  d[5],
		TransactionEntityID:       d[6],
	}, nil
}

// FraudEvent builds the fraud row. Every detail key is required.
func (e Event) FraudEvent() (FraudEvent, error) {
	d, err := e.details("fraud", "pid", "request_id", "idp_entity_id",
		"idp_fraud_event_id", "gpg45_status", "transaction_entity_id")
	if err != nil {
		return FraudEvent{}, err
	}
	return FraudEvent{
		EventID:             e.EventID,
		Timestamp:           e.Time(),
		SessionID:           e.SessionID,
		HashedPersistentID:  d[0],
		RequestID:           d[1],
		EntityID:            d[2],
		FraudEventID:        d[3],
		FraudIndicator:      d[4],
		TransactionEntityID: d[5],
	}, nil
}

func (e Event) details(kind string, keys ...string) ([]string, error) {
	results := gjson.GetManyBytes(e.Details, keys...)
	for i, r := range results {
		if !r.Exists() {
			return nil, &MissingDetailError{Kind: kind, EventID: e.EventID, Key: keys[i]}
		}
	}
	return lo.Map(results, func(r gjson.Result, _ int) string { return r.String() }), nil
}
