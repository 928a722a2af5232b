package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/handler"
	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/session"
	"github.com/civicpulse/engagement-platform/internal/whatsapp"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

type stubStore struct {
	voters map[string]model.VoterRecord
}

func (s *stubStore) FindVoter(ctx context.Context, voterID string) (model.VoterRecord, bool, error) {
	v, ok := s.voters[voterID]
	return v, ok, nil
}

func (s *stubStore) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	return nil
}

func (s *stubStore) FindSubscriberByPhone(ctx context.Context, phone string) (model.Submission, bool, error) {
	return model.Submission{}, false, nil
}

type stubGeocoder struct{}

func (stubGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool) {
	return "", false
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestWiring() (*dialogue.Engine, *session.Store, *whatsapp.Sender) {
	sessions := session.NewStore(30 * time.Minute)
	store := &stubStore{voters: map[string]model.VoterRecord{
		"ABC1234567": {VoterID: "ABC1234567", Name: "Kumar", PartNumber: 42},
	}}
	engine := dialogue.NewEngine(sessions, store, stubGeocoder{}, dialogue.NopAuditor{}, dialogue.Config{
		AssetBaseURL: "https://example.org",
	}, nopLogger())
	// Empty token keeps the sender in simulation mode.
	sender := whatsapp.NewSender(whatsapp.Config{}, nopLogger())
	return engine, sessions, sender
}

func TestWebhookVerifyHandshake(t *testing.T) {
	engine, _, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()

	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "12345" {
		t.Errorf("challenge not echoed: %q", body)
	}
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	engine, _, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()

	h.Verify(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookReceiveTextMessage(t *testing.T) {
	engine, sessions, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	body := `{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "919876543210", "type": "text", "text": {"body": "Hi"}}
		]}}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	sess, ok := sessions.Get("919876543210")
	if !ok {
		t.Fatal("greeting should create a session")
	}
	if sess.State.DialogueState() != "AWAITING_ID" {
		t.Errorf("state = %s, want AWAITING_ID", sess.State.DialogueState())
	}
}

func TestWebhookReceiveInteractiveReply(t *testing.T) {
	engine, sessions, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	post := func(body string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Receive(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}

	envelope := func(msg string) string {
		return `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[` + msg + `]}}]}]}`
	}

	post(envelope(`{"from":"919876543210","type":"text","text":{"body":"Hi"}}`))
	post(envelope(`{"from":"919876543210","type":"text","text":{"body":"ABC1234567"}}`))
	// A list selection arrives as an interactive reply carrying the row ID.
	post(envelope(`{"from":"919876543210","type":"interactive","interactive":{"list_reply":{"id":"1","title":"Report local issue"}}}`))

	sess, _ := sessions.Get("919876543210")
	if sess.State.DialogueState() != "ISSUE_CATEGORY" {
		t.Errorf("state = %s, want ISSUE_CATEGORY", sess.State.DialogueState())
	}
}

func TestWebhookReceiveMalformedBodyStillOK(t *testing.T) {
	engine, _, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("provider expects 200 even on bad input, got %d", rec.Code)
	}
}

func TestWebhookReceiveIgnoresOtherObjects(t *testing.T) {
	engine, sessions, sender := newTestWiring()
	h := handler.NewWebhookHandler(engine, sender, "secret-token", nopLogger())

	body := `{"object": "page", "entry": []}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sessions.Len() != 0 {
		t.Error("non-WhatsApp objects must not reach the engine")
	}
}
