package recorder

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/event-recorder/internal/core"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// seal encrypts plaintext the way the hub does.
func seal(t *testing.T, key []byte, iv, plaintext string) string {
	t.Helper()
	padLen := 128 - utf8.RuneCountInString(plaintext)%128
	padded := []byte(plaintext + strings.Repeat(string(rune(padLen)), padLen))
	require.Zero(t, len(padded)%aes.BlockSize, "padded plaintext must fill whole blocks")

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(append([]byte(iv), out...))
}

// ============================================================================
// Event writer
// ============================================================================

type fakeWriter struct {
	mu      sync.Mutex
	audit   map[string]Event
	billing []BillingEvent
	fraud   []FraudEvent
	failOn  string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{audit: make(map[string]Event)}
}

func (w *fakeWriter) WriteAuditEvent(ctx context.Context, e Event) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.EventID == w.failOn {
		return false, errors.New("connection reset by peer")
	}
	if _, ok := w.audit[e.EventID]; ok {
		return false, nil
	}
	w.audit[e.EventID] = e
	return true, nil
}

func (w *fakeWriter) WriteBillingEvent(ctx context.Context, e BillingEvent) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.billing {
		if b.EventID == e.EventID {
			return false, nil
		}
	}
	w.billing = append(w.billing, e)
	return true, nil
}

func (w *fakeWriter) WriteFraudEvent(ctx context.Context, e FraudEvent) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.fraud {
		if f.EventID == e.EventID {
			return false, nil
		}
	}
	w.fraud = append(w.fraud, e)
	return true, nil
}

// ============================================================================
// Queue
// ============================================================================

type fakeSQS struct {
	mu         sync.Mutex
	messages   []types.Message
	deleted    []string
	receiveErr error
	receives   int
}

func (q *fakeSQS) push(body string) {
	n := len(q.messages) + len(q.deleted)
	q.messages = append(q.messages, types.Message{
		MessageId:     aws.String(fmt.Sprintf("msg-%d", n)),
		ReceiptHandle: aws.String(fmt.Sprintf("rh-%d", n)),
		Body:          aws.String(body),
	})
}

// ReceiveMessage hands out each message once, like a visibility timeout
// that outlives the test.
func (q *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receives++
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	if len(q.messages) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{msg}}, nil
}

func (q *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

// ============================================================================
// Export files
// ============================================================================

type fakeSource struct {
	files   map[string]string
	deleted []string
}

func (s *fakeSource) Open(ctx context.Context, bucket, key string) (io.ReadCloser, core.ObjectInfo, error) {
	body, ok := s.files[key]
	if !ok {
		return nil, core.ObjectInfo{}, fmt.Errorf("NoSuchKey: %s", key)
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), core.ObjectInfo{Size: int64(len(body))}, nil
}

func (s *fakeSource) Delete(ctx context.Context, bucket, key string) error {
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// ============================================================================
// Log capture
// ============================================================================

type recordingHandler struct {
	mu       *sync.Mutex
	messages *[]string
}

func newRecordingLogger() (*slog.Logger, func() []string) {
	h := &recordingHandler{mu: &sync.Mutex{}, messages: &[]string{}}
	return slog.New(h), func() []string {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]string(nil), (*h.messages)...)
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.messages = append(*h.messages, r.Level.String()+" "+r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
