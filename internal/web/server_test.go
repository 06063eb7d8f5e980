package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/core"
)

type importCall struct {
	bucket, key string
	hasDeadline bool
}

type fakeImporter struct {
	mu     sync.Mutex
	calls  []importCall
	result *core.ImportResult
	err    error
}

func (f *fakeImporter) ImportObject(ctx context.Context, bucket, key string) (*core.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.calls = append(f.calls, importCall{bucket: bucket, key: key, hasDeadline: ok})
	return f.result, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Import: config.ImportConfig{Timeout: time.Minute},
	}
}

func newTestServer(imp Importer, db Pinger, cfg *config.Config) (*Server, *core.ImportLimiter) {
	limiter := core.NewImportLimiter(1, 10*time.Millisecond)
	return NewServer(imp, db, limiter, cfg), limiter
}

func notification(eventName, bucket, key string) string {
	return `{"EventName":"` + eventName + `","Key":"` + bucket + `/` + key + `","Records":[{"eventName":"` + eventName +
		`","s3":{"bucket":{"name":"` + bucket + `"},"object":{"key":"` + key + `","eTag":"abc"}}}]}`
}

func post(t *testing.T, s *Server, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events/s3", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleS3Event_Imports(t *testing.T) {
	id := uuid.New()
	imp := &fakeImporter{result: &core.ImportResult{
		SessionID:     id,
		Phase:         core.PhaseCommitted,
		EventsWritten: 4,
		Destination:   "success/fraud data.csv",
	}}
	s, limiter := newTestServer(imp, fakePinger{}, testConfig())

	rec := post(t, s, notification("s3:ObjectCreated:Put", "uploads", "idp/fraud+data.csv"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, imp.calls, 1)
	assert.Equal(t, importCall{bucket: "uploads", key: "idp/fraud data.csv", hasDeadline: true}, imp.calls[0])

	resp := decode[importResponse](t, rec)
	assert.Equal(t, id.String(), resp.SessionID)
	assert.Equal(t, core.PhaseCommitted, resp.Phase)
	assert.Equal(t, 4, resp.Events)
	assert.Equal(t, "success/fraud data.csv", resp.Destination)
	assert.Equal(t, 0, limiter.ActiveCount(), "slot released")
}

func TestHandleS3Event_RejectedFileIsHandled(t *testing.T) {
	failure := &core.ValidationFailure{Row: 6, Field: core.RowExceptionField, Message: "Failed to store IDP fraud event: bad (line 6)"}
	imp := &fakeImporter{result: &core.ImportResult{SessionID: uuid.New(), Phase: core.PhaseFailed, Failure: failure}}
	s, _ := newTestServer(imp, fakePinger{}, testConfig())

	rec := post(t, s, notification("ObjectCreated:Put", "uploads", "fraud.csv"))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[importResponse](t, rec)
	assert.Equal(t, core.PhaseFailed, resp.Phase)
	assert.Equal(t, failure, resp.Failure)
}

func TestHandleS3Event_IgnoresOtherEvents(t *testing.T) {
	imp := &fakeImporter{}
	s, _ := newTestServer(imp, fakePinger{}, testConfig())

	rec := post(t, s, notification("s3:ObjectRemoved:Delete", "uploads", "fraud.csv"))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, imp.calls)
	assert.Equal(t, "s3:ObjectRemoved:Delete", decode[importResponse](t, rec).Ignored)
}

func TestHandleS3Event_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not json",
			body:       "{",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no records",
			body:       `{"Records":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing tag",
			body:       notification("ObjectCreated:Put", "uploads", "fraud.csv"),
			err:        &core.MetadataError{Bucket: "uploads", Key: "fraud.csv", Tag: core.TagIdP, Err: core.ErrMissingTag},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "S3001",
		},
		{
			name:       "database down",
			body:       notification("ObjectCreated:Put", "uploads", "fraud.csv"),
			err:        &core.PersistenceError{Op: "connect", Err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "DB003",
		},
		{
			name:       "move failed",
			body:       notification("ObjectCreated:Put", "uploads", "fraud.csv"),
			err:        &core.RelocationError{Bucket: "uploads", Key: "fraud.csv", Destination: "success/fraud.csv", Err: errors.New("AccessDenied")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "S3005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &fakeImporter{err: tt.err, result: &core.ImportResult{}}
			s, _ := newTestServer(imp, fakePinger{}, testConfig())

			rec := post(t, s, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Message)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandleS3Event_Busy(t *testing.T) {
	imp := &fakeImporter{}
	s, limiter := newTestServer(imp, fakePinger{}, testConfig())
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	rec := post(t, s, notification("ObjectCreated:Put", "uploads", "fraud.csv"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "IMP001", decode[ErrorResponse](t, rec).Code)
	assert.Empty(t, imp.calls)
}

func TestHandleS3Event_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AuthTokens = []string{"s3cr3t"}
	imp := &fakeImporter{result: &core.ImportResult{Phase: core.PhaseCommitted}}
	s, _ := newTestServer(imp, fakePinger{}, cfg)
	body := notification("ObjectCreated:Put", "uploads", "fraud.csv")

	assert.Equal(t, http.StatusUnauthorized, post(t, s, body).Code)
	assert.Equal(t, http.StatusForbidden, post(t, s, body, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, post(t, s, body, "Authorization", "Bearer s3cr3t").Code)
	assert.Equal(t, http.StatusOK, post(t, s, body, "Authorization", "s3cr3t").Code)
	assert.Len(t, imp.calls, 2)
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{"database reachable", nil, http.StatusOK, "ok"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeImporter{}, fakePinger{err: tt.pingErr}, testConfig())
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.wantBody, body["status"])
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestShutdown_WaitsForImports(t *testing.T) {
	s, limiter := newTestServer(&fakeImporter{}, fakePinger{}, testConfig())
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Shutdown(ctx), "import still running")

	limiter.Release()
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestIsObjectCreated(t *testing.T) {
	assert.True(t, isObjectCreated("ObjectCreated:Put"))
	assert.True(t, isObjectCreated("s3:ObjectCreated:CompleteMultipartUpload"))
	assert.True(t, isObjectCreated(""))
	assert.False(t, isObjectCreated("s3:ObjectRemoved:Delete"))
	assert.False(t, isObjectCreated("s3:ObjectAccessed:Get"))
}
