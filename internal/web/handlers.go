package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/logging"
	"github.com/JonMunkholm/event-recorder/internal/storage"
)

// maxNotificationSize bounds a notification body. Real ones are a few KB.
const maxNotificationSize = 1 << 20

// importResponse is the body returned for a handled notification.
type importResponse struct {
	SessionID   string                  `json:"session_id,omitempty"`
	Phase       core.ImportPhase        `json:"phase,omitempty"`
	Events      int                     `json:"events"`
	Destination string                  `json:"destination,omitempty"`
	Skipped     bool                    `json:"skipped,omitempty"`
	Failure     *core.ValidationFailure `json:"failure,omitempty"`
	Ignored     string                  `json:"ignored,omitempty"`
}

// handleS3Event imports the object named by an S3-shaped notification.
func (s *Server) handleS3Event(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNotificationSize)

	var ev events.S3Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, r, errors.New("invalid notification body"), http.StatusBadRequest)
		return
	}

	ref, err := storage.FirstObject(ev)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if name := ev.Records[0].EventName; !isObjectCreated(name) {
		logging.FromContext(r.Context()).Info("Ignoring notification", "event", name, "key", ref.Key)
		writeJSON(w, http.StatusAccepted, importResponse{Ignored: name})
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	ctx, cancel := s.importContext(r)
	defer cancel()

	result, err := s.importer.ImportObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := importResponse{
		Phase:       result.Phase,
		Events:      result.EventsWritten,
		Destination: result.Destination,
		Skipped:     result.Skipped,
		Failure:     result.Failure,
	}
	if result.SessionID != uuid.Nil {
		resp.SessionID = result.SessionID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth reports database reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{"status": "ok", "imports": s.limiter.Status()}
	if err := s.db.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("health check failed", "error", err)
		body["status"] = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// isObjectCreated accepts both the AWS ("ObjectCreated:Put") and MinIO
// ("s3:ObjectCreated:Put") event name forms. An empty name is treated as a
// creation so hand-written notifications work.
func isObjectCreated(name string) bool {
	return name == "" || strings.HasPrefix(strings.TrimPrefix(name, "s3:"), "ObjectCreated:")
}
