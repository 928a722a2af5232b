package dialogue_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/session"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

const testPhone = "919876543210"

var testVoter = model.VoterRecord{
	VoterID:        "ABC1234567",
	Name:           "Kumar",
	Age:            34,
	Gender:         "M",
	Area:           "Anna Nagar, Chennai",
	District:       "Chennai",
	AssemblyName:   "Anna Nagar",
	PartNumber:     42,
	ParliamentName: "Chennai Central",
}

type fakeStore struct {
	voters      map[string]model.VoterRecord
	inserted    []*model.Submission
	insertErr   error
	subscribers map[string]model.Submission
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		voters:      map[string]model.VoterRecord{testVoter.VoterID: testVoter},
		subscribers: map[string]model.Submission{},
	}
}

func (f *fakeStore) FindVoter(ctx context.Context, voterID string) (model.VoterRecord, bool, error) {
	v, ok := f.voters[voterID]
	return v, ok, nil
}

func (f *fakeStore) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	copied := *sub
	f.inserted = append(f.inserted, &copied)
	if sub.Kind == model.KindSubscriber {
		f.subscribers[sub.PhoneNumber] = copied
	}
	return nil
}

func (f *fakeStore) FindSubscriberByPhone(ctx context.Context, phone string) (model.Submission, bool, error) {
	sub, ok := f.subscribers[phone]
	return sub, ok, nil
}

type fakeGeocoder struct {
	address string
	found   bool
	calls   int
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool) {
	f.calls++
	return f.address, f.found
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestEngine(store *fakeStore, geo *fakeGeocoder) (*dialogue.Engine, *session.Store) {
	sessions := session.NewStore(30 * time.Minute)
	eng := dialogue.NewEngine(sessions, store, geo, dialogue.NopAuditor{}, dialogue.Config{
		AssetBaseURL: "https://example.org",
	}, nopLogger())
	return eng, sessions
}

func send(t *testing.T, eng *dialogue.Engine, text string) model.Reply {
	t.Helper()
	return eng.Handle(context.Background(), testPhone, model.TextInput{Body: text})
}

func sendLocation(t *testing.T, eng *dialogue.Engine, lat, lng float64) model.Reply {
	t.Helper()
	return eng.Handle(context.Background(), testPhone, model.LocationInput{Latitude: lat, Longitude: lng})
}

// verify drives a fresh user through greeting and EPIC verification.
func verify(t *testing.T, eng *dialogue.Engine) {
	t.Helper()
	send(t, eng, "Hi")
	reply := send(t, eng, testVoter.VoterID)
	if _, ok := reply.(model.ListReply); !ok {
		t.Fatalf("expected menu list after verification, got %T", reply)
	}
}

func textBody(t *testing.T, reply model.Reply) string {
	t.Helper()
	tr, ok := reply.(model.TextReply)
	if !ok {
		t.Fatalf("expected TextReply, got %T", reply)
	}
	return tr.Body
}

func TestGreetingReturnsWelcomeImage(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})

	reply := send(t, eng, "Hi")

	img, ok := reply.(model.ImageReply)
	if !ok {
		t.Fatalf("expected ImageReply, got %T", reply)
	}
	if img.URL != "https://example.org/assets/welcome.jpg" {
		t.Errorf("unexpected welcome image URL: %s", img.URL)
	}
	if !strings.Contains(img.Caption, "EPIC") {
		t.Errorf("welcome caption should ask for EPIC number, got: %s", img.Caption)
	}
}

func TestUnknownUserGetsWelcomeRegardlessOfText(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})

	reply := eng.Handle(context.Background(), testPhone, model.TextInput{Body: "random words"})
	// First contact creates a session; the message itself is not treated as
	// an EPIC attempt.
	if _, ok := reply.(model.ImageReply); !ok {
		t.Fatalf("expected welcome image for unknown user, got %T", reply)
	}
}

func TestInvalidEPICFormat(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	send(t, eng, "Hi")

	body := textBody(t, send(t, eng, "ab"))
	if !strings.Contains(body, "valid EPIC") {
		t.Errorf("expected format error, got: %s", body)
	}

	sess, ok := sessions.Get(testPhone)
	if !ok || sess.State.DialogueState() != "AWAITING_ID" {
		t.Errorf("session should remain in AWAITING_ID")
	}
}

func TestEPICNotFoundStaysAwaiting(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	send(t, eng, "Hi")

	body := textBody(t, send(t, eng, "ZZZ9999999"))
	if !strings.Contains(body, "could not locate") {
		t.Errorf("expected not-found message, got: %s", body)
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "AWAITING_ID" {
		t.Errorf("state = %s, want AWAITING_ID", sess.State.DialogueState())
	}
}

func TestEPICLowercaseAccepted(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})
	send(t, eng, "Hi")

	reply := send(t, eng, "abc1234567")
	list, ok := reply.(model.ListReply)
	if !ok {
		t.Fatalf("expected menu list, got %T", reply)
	}
	if !strings.Contains(list.Body, "Kumar") {
		t.Errorf("menu should greet the voter by name, got: %s", list.Body)
	}
	if !strings.Contains(list.Body, "42") {
		t.Errorf("menu should show booth number, got: %s", list.Body)
	}
	if len(list.Sections) != 1 || len(list.Sections[0].Rows) != 4 {
		t.Fatalf("menu should offer exactly four options")
	}
}

func TestMenuInvalidOptionRepeatsHelp(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)

	body := textBody(t, send(t, eng, "7"))
	if !strings.Contains(body, "valid option") {
		t.Errorf("expected menu help, got: %s", body)
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "VERIFIED_MENU" {
		t.Errorf("state = %s, want VERIFIED_MENU", sess.State.DialogueState())
	}
}

func TestIssueCategoryList(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)

	reply := send(t, eng, "1")
	list, ok := reply.(model.ListReply)
	if !ok {
		t.Fatalf("expected category list, got %T", reply)
	}
	if len(list.Sections[0].Rows) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(list.Sections[0].Rows))
	}
	if !strings.Contains(list.Sections[0].Rows[2].Title, "Electricity") {
		t.Errorf("third category should be Electricity, got %s", list.Sections[0].Rows[2].Title)
	}
}

func TestIssueInvalidCategory(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")

	body := textBody(t, send(t, eng, "99"))
	if !strings.Contains(body, "Invalid selection") {
		t.Errorf("expected invalid selection, got: %s", body)
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "ISSUE_CATEGORY" {
		t.Errorf("state = %s, want ISSUE_CATEGORY", sess.State.DialogueState())
	}
}

func TestIssueDescriptionTooShort(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "3")

	body := textBody(t, send(t, eng, "ab"))
	if !strings.Contains(body, "at least 3") {
		t.Errorf("expected length error, got: %s", body)
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "ISSUE_DESCRIPTION" {
		t.Errorf("state = %s, want ISSUE_DESCRIPTION", sess.State.DialogueState())
	}
}

func TestIssueDescriptionTooLong(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "3")

	body := textBody(t, send(t, eng, strings.Repeat("x", 251)))
	if !strings.Contains(body, "too long") {
		t.Errorf("expected too-long error, got: %s", body)
	}
}

func TestIssueDescriptionLengthCountsCharactersNotBytes(t *testing.T) {
	store := newFakeStore()
	eng, _ := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "1")

	// 100 Tamil characters are 300 UTF-8 bytes; they must pass the 250 bound.
	description := strings.Repeat("த", 100)
	reply := send(t, eng, description)
	if _, ok := reply.(model.ButtonsReply); !ok {
		t.Fatalf("100-character description should advance to the location step, got %T: %v", reply, reply)
	}

	send(t, eng, "SKIP")
	if len(store.inserted) != 1 || store.inserted[0].Message != description {
		t.Fatalf("description not stored verbatim")
	}
}

func TestIssueDescriptionTooLongReportsCharacterCount(t *testing.T) {
	eng, _ := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "1")

	body := textBody(t, send(t, eng, strings.Repeat("த", 251)))
	if !strings.Contains(body, "(251 characters)") {
		t.Errorf("error should report the character count, got: %s", body)
	}
}

func TestSuggestionLengthCountsCharactersNotBytes(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "2")

	// 5 Tamil characters are 15 bytes; they meet the 5-character minimum.
	reply := send(t, eng, strings.Repeat("த", 5))
	if _, ok := reply.(model.ButtonsReply); !ok {
		t.Fatalf("5-character suggestion should advance, got %T", reply)
	}
	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "SUGGESTION_LOCATION" {
		t.Errorf("state = %s, want SUGGESTION_LOCATION", sess.State.DialogueState())
	}
}

func TestIssueFlowWithSkippedDescriptionAndLocation(t *testing.T) {
	store := newFakeStore()
	eng, sessions := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "3")
	send(t, eng, "skip")

	body := textBody(t, send(t, eng, "SKIP"))
	if !strings.Contains(body, "ward organiser will connect") {
		t.Errorf("skip-location confirmation should mention the ward organiser, got: %s", body)
	}
	if strings.Contains(body, "visit the spot") {
		t.Errorf("skip-location confirmation must not promise a site visit")
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(store.inserted))
	}
	sub := store.inserted[0]
	if sub.Kind != model.KindGrievance {
		t.Errorf("kind = %s, want grievance", sub.Kind)
	}
	if sub.Category != "Electricity" {
		t.Errorf("category = %s, want Electricity", sub.Category)
	}
	if sub.Message != "SKIPPED" {
		t.Errorf("skipped description should store the sentinel, got %q", sub.Message)
	}
	if sub.Location != nil {
		t.Errorf("location should be nil when skipped")
	}
	if sub.Status != model.StatusOpen {
		t.Errorf("status = %s, want %s", sub.Status, model.StatusOpen)
	}
	if sub.VoterID != testVoter.VoterID || sub.PartNumber != 42 {
		t.Errorf("identity snapshot not denormalized: %+v", sub)
	}

	if _, ok := sessions.Get(testPhone); ok {
		t.Errorf("session should be cleared after a completed flow")
	}
}

func TestIssueFlowWithLocationAndFailedGeocode(t *testing.T) {
	store := newFakeStore()
	geo := &fakeGeocoder{found: false}
	eng, _ := newTestEngine(store, geo)
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "2")
	send(t, eng, "pothole near the bus stand")

	body := textBody(t, sendLocation(t, eng, 13.0827, 80.2707))
	if !strings.Contains(body, "visit the spot") {
		t.Errorf("location confirmation should promise a site visit, got: %s", body)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected one record, got %d", len(store.inserted))
	}
	loc := store.inserted[0].Location
	if loc == nil {
		t.Fatal("location should be recorded")
	}
	if loc.Latitude != 13.0827 || loc.Longitude != 80.2707 {
		t.Errorf("coordinates not preserved: %+v", loc)
	}
	if !strings.Contains(loc.MapLink, "maps?q=13.082700,80.270700") {
		t.Errorf("unexpected map link: %s", loc.MapLink)
	}
	if loc.ActualAddress != "" {
		t.Errorf("failed geocode should leave address empty, got %q", loc.ActualAddress)
	}
	if geo.calls != 1 {
		t.Errorf("geocoder calls = %d, want 1", geo.calls)
	}
}

func TestIssueLocationRejectsPlainText(t *testing.T) {
	store := newFakeStore()
	eng, sessions := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "1")
	send(t, eng, "no water for three days")

	body := textBody(t, send(t, eng, "near the temple"))
	if !strings.Contains(body, "share your location") {
		t.Errorf("expected location re-prompt, got: %s", body)
	}
	if len(store.inserted) != 0 {
		t.Errorf("no record should be written before a valid terminal input")
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "ISSUE_LOCATION" {
		t.Errorf("state = %s, want ISSUE_LOCATION", sess.State.DialogueState())
	}
}

func TestSuggestionFlow(t *testing.T) {
	store := newFakeStore()
	geo := &fakeGeocoder{address: "Anna Nagar West, Chennai", found: true}
	eng, _ := newTestEngine(store, geo)
	verify(t, eng)
	send(t, eng, "2")

	// Minimum length is 5 and there is no skip at this step.
	body := textBody(t, send(t, eng, "abc"))
	if !strings.Contains(body, "at least 5") {
		t.Errorf("expected length error, got: %s", body)
	}

	send(t, eng, "more street lights on 3rd avenue")
	textBody(t, sendLocation(t, eng, 13.09, 80.18))

	if len(store.inserted) != 1 {
		t.Fatalf("expected one record, got %d", len(store.inserted))
	}
	sub := store.inserted[0]
	if sub.Kind != model.KindSuggestion {
		t.Errorf("kind = %s, want suggestion", sub.Kind)
	}
	if sub.Status != model.StatusPending {
		t.Errorf("status = %s, want %s", sub.Status, model.StatusPending)
	}
	if sub.Location == nil || sub.Location.ActualAddress != "Anna Nagar West, Chennai" {
		t.Errorf("resolved address not stored: %+v", sub.Location)
	}
}

func TestVolunteerFlowFreeTextParticipation(t *testing.T) {
	store := newFakeStore()
	eng, _ := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "3")
	send(t, eng, "I can help with door to door visits")
	textBody(t, send(t, eng, "SKIP"))

	if len(store.inserted) != 1 {
		t.Fatalf("expected one record, got %d", len(store.inserted))
	}
	sub := store.inserted[0]
	if sub.Kind != model.KindVolunteer {
		t.Errorf("kind = %s, want volunteer", sub.Kind)
	}
	if sub.ParticipationType != "I can help with door to door visits" {
		t.Errorf("free-text participation should be stored verbatim, got %q", sub.ParticipationType)
	}
	if sub.Status != model.StatusPending {
		t.Errorf("status = %s, want %s", sub.Status, model.StatusPending)
	}
}

func TestVolunteerFlowNumberedParticipation(t *testing.T) {
	store := newFakeStore()
	eng, _ := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "3")
	send(t, eng, "1")
	send(t, eng, "SKIP")

	if store.inserted[0].ParticipationType != "Volunteer @ Booth" {
		t.Errorf("participation = %q, want Volunteer @ Booth", store.inserted[0].ParticipationType)
	}
}

func TestSubscriptionFlow(t *testing.T) {
	store := newFakeStore()
	eng, sessions := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "4")

	body := textBody(t, send(t, eng, "SKIP"))
	if !strings.Contains(body, "Booth 42") {
		t.Errorf("confirmation should mention the booth, got: %s", body)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected one record, got %d", len(store.inserted))
	}
	if store.inserted[0].Status != model.StatusActive {
		t.Errorf("status = %s, want %s", store.inserted[0].Status, model.StatusActive)
	}
	if _, ok := sessions.Get(testPhone); ok {
		t.Errorf("session should be cleared")
	}
}

func TestSubscriptionDedupeByPhone(t *testing.T) {
	store := newFakeStore()
	eng, _ := newTestEngine(store, &fakeGeocoder{})

	verify(t, eng)
	send(t, eng, "4")
	send(t, eng, "SKIP")

	// Second pass with the same phone number.
	verify(t, eng)
	send(t, eng, "4")
	body := textBody(t, send(t, eng, "SKIP"))

	if !strings.Contains(body, "already subscribed") {
		t.Errorf("expected dedupe message, got: %s", body)
	}
	if len(store.inserted) != 1 {
		t.Errorf("duplicate subscription must not write a second record, got %d", len(store.inserted))
	}
}

func TestResetMidFlowClearsEverything(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "5")

	reply := send(t, eng, "hello")
	if _, ok := reply.(model.ImageReply); !ok {
		t.Fatalf("reset should return welcome image, got %T", reply)
	}

	sess, _ := sessions.Get(testPhone)
	if sess.State.DialogueState() != "AWAITING_ID" {
		t.Errorf("state = %s, want AWAITING_ID", sess.State.DialogueState())
	}
	if sess.Verified != nil {
		t.Errorf("reset should drop the verified snapshot")
	}
}

func TestIdleSessionEvictedMidFlow(t *testing.T) {
	eng, sessions := newTestEngine(newFakeStore(), &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")

	sess, _ := sessions.Get(testPhone)
	sess.LastActivity = time.Now().Add(-time.Hour)

	reply := send(t, eng, "3")
	if _, ok := reply.(model.ImageReply); !ok {
		t.Fatalf("expired session should restart with welcome, got %T", reply)
	}
}

func TestInsertFailureKeepsSessionForRetry(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	eng, sessions := newTestEngine(store, &fakeGeocoder{})
	verify(t, eng)
	send(t, eng, "1")
	send(t, eng, "1")
	send(t, eng, "pipe burst on main road")

	body := textBody(t, send(t, eng, "SKIP"))
	if !strings.Contains(body, "System Error") {
		t.Errorf("expected system error, got: %s", body)
	}
	sess, ok := sessions.Get(testPhone)
	if !ok || sess.State.DialogueState() != "ISSUE_LOCATION" {
		t.Fatalf("session should survive a write failure at the same step")
	}

	store.insertErr = nil
	body = textBody(t, send(t, eng, "SKIP"))
	if !strings.Contains(body, "recorded") {
		t.Errorf("retry should succeed, got: %s", body)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one record after retry, got %d", len(store.inserted))
	}
}

type auditEvent struct {
	name   string
	fields map[string]any
}

type recordingAuditor struct {
	events []auditEvent
}

func (a *recordingAuditor) Record(ctx context.Context, event string, fields map[string]any) {
	a.events = append(a.events, auditEvent{name: event, fields: fields})
}

func TestLocationInputAuditedWithMarker(t *testing.T) {
	auditor := &recordingAuditor{}
	sessions := session.NewStore(30 * time.Minute)
	eng := dialogue.NewEngine(sessions, newFakeStore(), &fakeGeocoder{}, auditor, dialogue.Config{
		AssetBaseURL: "https://example.org",
	}, nopLogger())

	send(t, eng, "Hi")
	send(t, eng, testVoter.VoterID)
	send(t, eng, "4")
	sendLocation(t, eng, 13.0827, 80.2707)

	var last map[string]any
	for _, ev := range auditor.events {
		if ev.name == "incoming_message" {
			last = ev.fields
		}
	}
	if last == nil {
		t.Fatal("expected incoming_message events")
	}
	if last["message"] != "[location]" {
		t.Errorf("location input should be audited as a marker, got %v", last["message"])
	}
}

func TestReferenceCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^(GRV|SUG|VOL|SUB)[0-9]{5}$`)
	for _, tc := range []struct {
		kind   model.SubmissionKind
		prefix string
	}{
		{model.KindGrievance, "GRV"},
		{model.KindSuggestion, "SUG"},
		{model.KindVolunteer, "VOL"},
		{model.KindSubscriber, "SUB"},
	} {
		code := model.NewReferenceCode(tc.kind)
		if !pattern.MatchString(code) {
			t.Errorf("code %q does not match the reference format", code)
		}
		if !strings.HasPrefix(code, tc.prefix) {
			t.Errorf("code %q should carry prefix %s", code, tc.prefix)
		}
	}
}
