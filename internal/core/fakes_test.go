package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// In-memory session store
// ============================================================================

type storedEvent struct {
	id        int64
	sessionID uuid.UUID
	event     FraudEvent
}

type memStore struct {
	mu       sync.Mutex
	sessions []ImportSession
	events   []storedEvent
	contras  map[int64][]ContraIndicatorCount
	failures map[uuid.UUID][]ValidationFailure
	nextID   int64
	begins   int

	pingErr   error
	beginErr  error
	commitErr error
	findErr   error
	// rejectEvent makes InsertFraudEvent fail for that IdP event id.
	rejectEvent string
}

func newMemStore() *memStore {
	return &memStore{
		contras:  make(map[int64][]ContraIndicatorCount),
		failures: make(map[uuid.UUID][]ValidationFailure),
	}
}

func (s *memStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *memStore) FindSession(ctx context.Context, objectKey, etag string) (ImportSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return ImportSession{}, false, s.findErr
	}
	for _, sess := range s.sessions {
		if sess.SourceObjectKey == objectKey && sess.SourceETag == etag {
			return sess, true, nil
		}
	}
	return ImportSession{}, false, nil
}

func (s *memStore) Begin(ctx context.Context) (SessionTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{store: s, contras: make(map[int64][]ContraIndicatorCount), failures: make(map[uuid.UUID][]ValidationFailure)}, nil
}

func (s *memStore) sessionsByOutcome(passed bool) []ImportSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ImportSession
	for _, sess := range s.sessions {
		if sess.PassedValidation == passed {
			out = append(out, sess)
		}
	}
	return out
}

type memTx struct {
	store    *memStore
	sessions []ImportSession
	events   []storedEvent
	contras  map[int64][]ContraIndicatorCount
	failures map[uuid.UUID][]ValidationFailure
	done     bool
}

func (tx *memTx) InsertSession(ctx context.Context, session ImportSession) error {
	tx.sessions = append(tx.sessions, session)
	return nil
}

func (tx *memTx) InsertFraudEvent(ctx context.Context, sessionID uuid.UUID, event FraudEvent) (int64, error) {
	if tx.store.rejectEvent != "" && event.IdpEventID == tx.store.rejectEvent {
		return 0, errors.New(`ERROR: duplicate key value violates unique constraint "fraud_events_idp_event_id_key" (SQLSTATE 23505)`)
	}
	tx.store.mu.Lock()
	tx.store.nextID++
	id := tx.store.nextID
	tx.store.mu.Unlock()

	tx.events = append(tx.events, storedEvent{id: id, sessionID: sessionID, event: event})
	return id, nil
}

func (tx *memTx) InsertContraIndicators(ctx context.Context, eventID int64, counts []ContraIndicatorCount) error {
	tx.contras[eventID] = append(tx.contras[eventID], counts...)
	return nil
}

func (tx *memTx) InsertValidationFailure(ctx context.Context, sessionID uuid.UUID, failure ValidationFailure) error {
	tx.failures[sessionID] = append(tx.failures[sessionID], failure)
	return nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.done {
		return errors.New("tx closed")
	}
	tx.done = true
	if tx.store.commitErr != nil {
		return tx.store.commitErr
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, tx.sessions...)
	s.events = append(s.events, tx.events...)
	for id, c := range tx.contras {
		s.contras[id] = append(s.contras[id], c...)
	}
	for id, f := range tx.failures {
		s.failures[id] = append(s.failures[id], f...)
	}
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	tx.done = true
	return nil
}

// ============================================================================
// In-memory object store
// ============================================================================

type memObject struct {
	body []byte
	etag string
	tags map[string]string
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string]*memObject
	moveErr error
	tagsErr error
	moves   int
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string]*memObject)}
}

func (o *memObjects) put(key, body, etag string, tags map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = &memObject{body: []byte(body), etag: etag, tags: tags}
}

func (o *memObjects) has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok
}

func (o *memObjects) Open(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[key]
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("NoSuchKey: %s", key)
	}
	return io.NopCloser(bytes.NewReader(obj.body)), ObjectInfo{ETag: obj.etag, Size: int64(len(obj.body))}, nil
}

func (o *memObjects) Tags(ctx context.Context, bucket, key string) (map[string]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tagsErr != nil {
		return nil, o.tagsErr
	}
	obj, ok := o.objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", key)
	}
	return obj.tags, nil
}

func (o *memObjects) Move(ctx context.Context, bucket, srcKey, dstKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves++
	if o.moveErr != nil {
		return o.moveErr
	}
	obj, ok := o.objects[srcKey]
	if !ok {
		return fmt.Errorf("NoSuchKey: %s", srcKey)
	}
	o.objects[dstKey] = obj
	delete(o.objects, srcKey)
	return nil
}

// ============================================================================
// Log capture
// ============================================================================

type logEntry struct {
	Level   slog.Level
	Message string
}

type recordingHandler struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() (*slog.Logger, func() []logEntry) {
	h := &recordingHandler{mu: &sync.Mutex{}, entries: &[]logEntry{}}
	return slog.New(h), func() []logEntry {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]logEntry(nil), (*h.entries)...)
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.entries = append(*h.entries, logEntry{Level: r.Level, Message: r.Message})
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
