package dialogue

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/session"
	"github.com/civicpulse/engagement-platform/pkg/logger"
	"github.com/civicpulse/engagement-platform/pkg/metrics"
)

// RecordStore is the persistence surface the engine needs. Lookups report
// absence explicitly; an error means the store itself failed.
type RecordStore interface {
	FindVoter(ctx context.Context, voterID string) (model.VoterRecord, bool, error)
	InsertSubmission(ctx context.Context, sub *model.Submission) error
	FindSubscriberByPhone(ctx context.Context, phoneNumber string) (model.Submission, bool, error)
}

// Geocoder resolves coordinates to an address. It never fails: timeouts and
// errors collapse to absent.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool)
}

// Auditor records engagement events. Best-effort: implementations swallow
// their own failures.
type Auditor interface {
	Record(ctx context.Context, event string, fields map[string]any)
}

// NopAuditor discards all events.
type NopAuditor struct{}

// Record implements Auditor.
func (NopAuditor) Record(context.Context, string, map[string]any) {}

// Config carries engine construction parameters.
type Config struct {
	// AssetBaseURL is the public origin used to build the welcome image link.
	AssetBaseURL string
}

// Engine drives the per-user conversation state machine.
type Engine struct {
	sessions     *session.Store
	store        RecordStore
	geocoder     Geocoder
	auditor      Auditor
	assetBaseURL string
	logger       *logger.Logger
}

// NewEngine creates a dialogue engine.
func NewEngine(sessions *session.Store, store RecordStore, geocoder Geocoder, auditor Auditor, cfg Config, log *logger.Logger) *Engine {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Engine{
		sessions:     sessions,
		store:        store,
		geocoder:     geocoder,
		auditor:      auditor,
		assetBaseURL: strings.TrimRight(cfg.AssetBaseURL, "/"),
		logger:       log,
	}
}

var resetWords = map[string]bool{
	"hi":       true,
	"hello":    true,
	"start":    true,
	"menu":     true,
	"reset":    true,
	"vanakkam": true,
}

var epicPattern = regexp.MustCompile(`^[A-Z0-9]{6,15}$`)

const maxTextLength = 250

// Handle processes one inbound message and returns the reply descriptor. All
// collaborator failures are converted to user-visible outcomes; Handle never
// returns an error. Steps for the same user are serialized on the session
// store's per-key lock.
func (e *Engine) Handle(ctx context.Context, userID string, in model.Input) model.Reply {
	lock := e.sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	text := ""
	if t, ok := in.(model.TextInput); ok {
		text = strings.TrimSpace(t.Body)
	}

	auditText := text
	if _, ok := in.(model.LocationInput); ok {
		auditText = "[location]"
	}
	e.auditor.Record(ctx, "incoming_message", map[string]any{
		"phoneNumber": userID,
		"message":     auditText,
	})

	// Reset keywords override any state, including mid-flow.
	if resetWords[strings.ToLower(text)] {
		e.sessions.Create(userID, awaitingID{})
		metrics.DialogueMessagesTotal.WithLabelValues("RESET").Inc()
		return e.welcomeReply()
	}

	sess, ok := e.sessions.Get(userID)
	if !ok {
		e.sessions.Create(userID, awaitingID{})
		metrics.DialogueMessagesTotal.WithLabelValues("NEW").Inc()
		return e.welcomeReply()
	}

	metrics.DialogueMessagesTotal.WithLabelValues(sess.State.DialogueState()).Inc()

	switch st := sess.State.(type) {
	case awaitingID:
		return e.handleVerification(ctx, sess, text)
	case verifiedMenu:
		return e.handleMenu(sess, text)
	case issueCategory:
		return e.handleIssueCategory(sess, text)
	case issueDescription:
		return e.handleIssueDescription(sess, st, text)
	case issueLocation:
		return e.finishIssue(ctx, sess, st, in, text)
	case suggestionText:
		return e.handleSuggestionText(sess, text)
	case suggestionLocation:
		return e.finishSuggestion(ctx, sess, st, in, text)
	case participationType:
		return e.handleParticipation(sess, text)
	case volunteerLocation:
		return e.finishVolunteer(ctx, sess, st, in, text)
	case updatesLocation:
		return e.finishSubscription(ctx, sess, in, text)
	default:
		// Stale state after a code change. Restart rather than surface a fault.
		e.logger.Warn("unknown dialogue state, restarting",
			zap.String("state", sess.State.DialogueState()),
			zap.String("phone_number", userID))
		e.sessions.Create(userID, awaitingID{})
		return e.welcomeReply()
	}
}

func (e *Engine) handleVerification(ctx context.Context, sess *session.Session, input string) model.Reply {
	voterID := strings.ToUpper(strings.TrimSpace(input))

	if !epicPattern.MatchString(voterID) {
		return model.TextReply{Body: msgInvalidEPIC}
	}

	voter, found, err := e.store.FindVoter(ctx, voterID)

	e.auditor.Record(ctx, "epic_verification", map[string]any{
		"phoneNumber": sess.UserID,
		"voterId":     voterID,
		"found":       found,
	})

	if err != nil {
		e.logger.Error("voter lookup failed", zap.Error(err), zap.String("voter_id", voterID))
		return model.TextReply{Body: msgSystemError}
	}

	if !found {
		return model.TextReply{Body: msgEPICNotFound}
	}

	snapshot := voter
	sess.Verified = &snapshot
	sess.State = verifiedMenu{}

	return verifiedMenuReply(voter)
}

func (e *Engine) handleMenu(sess *session.Session, input string) model.Reply {
	switch input {
	case "1":
		sess.State = issueCategory{}
		return categoryReply(sess.Verified.Name)
	case "2":
		sess.State = suggestionText{}
		return suggestionPromptReply()
	case "3":
		sess.State = participationType{}
		return participationReply(sess.Verified.Name)
	case "4":
		// No content is needed beyond identity, so subscription goes straight
		// to location collection.
		sess.State = updatesLocation{}
		return locationPromptReply("share updates relevant to your area")
	default:
		return model.TextReply{Body: msgMenuHelp}
	}
}

func (e *Engine) handleIssueCategory(sess *session.Session, input string) model.Reply {
	category, ok := categories[input]
	if !ok {
		return invalidCategoryReply()
	}

	sess.State = issueDescription{category: category}
	return descriptionPromptReply()
}

func (e *Engine) handleIssueDescription(sess *session.Session, st issueDescription, input string) model.Reply {
	description := input
	if strings.EqualFold(input, skipKeyword) {
		description = skippedSentinel
	} else {
		// Bounds are in characters, not bytes.
		length := utf8.RuneCountInString(input)
		if length < 3 {
			return model.TextReply{Body: "⚠️ Please provide more detail (at least 3 characters) or type *SKIP*."}
		}
		if length > maxTextLength {
			return lengthErrorReply(length, "message")
		}
	}

	sess.State = issueLocation{category: st.category, description: description}
	return locationPromptReply("identify the exact spot and resolve it faster")
}

func (e *Engine) handleSuggestionText(sess *session.Session, input string) model.Reply {
	length := utf8.RuneCountInString(input)
	if length < 5 {
		return model.TextReply{Body: "⚠️ Please provide more detail (at least 5 characters)."}
	}
	if length > maxTextLength {
		return lengthErrorReply(length, "suggestion")
	}

	sess.State = suggestionLocation{text: input}
	return locationPromptReply("connect your idea to the right ward")
}

func (e *Engine) handleParticipation(sess *session.Session, input string) model.Reply {
	// Unrecognized input is accepted verbatim as a free-form description.
	participation, ok := participationOptions[input]
	if !ok {
		participation = input
	}

	sess.State = volunteerLocation{participation: participation}
	return locationPromptReply("assign you to the nearest booth team")
}

func (e *Engine) finishIssue(ctx context.Context, sess *session.Session, st issueLocation, in model.Input, text string) model.Reply {
	loc, ok := e.resolveLocation(ctx, in, text)
	if !ok {
		return model.TextReply{Body: msgShareLocation}
	}

	sub := e.newSubmission(model.KindGrievance, sess)
	sub.Category = st.category
	sub.Message = st.description
	sub.Location = loc
	sub.Status = model.StatusOpen

	if err := e.store.InsertSubmission(ctx, sub); err != nil {
		return e.insertFailed("grievance", sess, err)
	}

	e.auditor.Record(ctx, "grievance_created", map[string]any{
		"phoneNumber": sess.UserID,
		"voterId":     sub.VoterID,
		"ticketId":    sub.ReferenceCode,
		"category":    sub.Category,
		"hasLocation": loc != nil,
	})
	metrics.SubmissionsTotal.WithLabelValues(string(model.KindGrievance)).Inc()

	e.sessions.Delete(sess.UserID)
	return model.TextReply{Body: issueConfirmation(sess.Verified, loc != nil)}
}

func (e *Engine) finishSuggestion(ctx context.Context, sess *session.Session, st suggestionLocation, in model.Input, text string) model.Reply {
	loc, ok := e.resolveLocation(ctx, in, text)
	if !ok {
		return model.TextReply{Body: msgShareLocation}
	}

	sub := e.newSubmission(model.KindSuggestion, sess)
	sub.Message = st.text
	sub.Location = loc
	sub.Status = model.StatusPending

	if err := e.store.InsertSubmission(ctx, sub); err != nil {
		return e.insertFailed("suggestion", sess, err)
	}

	e.auditor.Record(ctx, "suggestion_created", map[string]any{
		"phoneNumber":  sess.UserID,
		"voterId":      sub.VoterID,
		"suggestionId": sub.ReferenceCode,
		"hasLocation":  loc != nil,
	})
	metrics.SubmissionsTotal.WithLabelValues(string(model.KindSuggestion)).Inc()

	e.sessions.Delete(sess.UserID)
	return model.TextReply{Body: suggestionConfirmation(sess.Verified, loc != nil)}
}

func (e *Engine) finishVolunteer(ctx context.Context, sess *session.Session, st volunteerLocation, in model.Input, text string) model.Reply {
	loc, ok := e.resolveLocation(ctx, in, text)
	if !ok {
		return model.TextReply{Body: msgShareLocation}
	}

	sub := e.newSubmission(model.KindVolunteer, sess)
	sub.ParticipationType = st.participation
	sub.Location = loc
	sub.Status = model.StatusPending

	if err := e.store.InsertSubmission(ctx, sub); err != nil {
		return e.insertFailed("volunteer", sess, err)
	}

	e.auditor.Record(ctx, "volunteer_registered", map[string]any{
		"phoneNumber": sess.UserID,
		"voterId":     sub.VoterID,
		"volunteerId": sub.ReferenceCode,
		"type":        st.participation,
	})
	metrics.SubmissionsTotal.WithLabelValues(string(model.KindVolunteer)).Inc()

	e.sessions.Delete(sess.UserID)
	return model.TextReply{Body: volunteerConfirmation(sess.Verified, loc != nil)}
}

func (e *Engine) finishSubscription(ctx context.Context, sess *session.Session, in model.Input, text string) model.Reply {
	loc, ok := e.resolveLocation(ctx, in, text)
	if !ok {
		return model.TextReply{Body: msgShareLocation}
	}

	if _, exists, err := e.store.FindSubscriberByPhone(ctx, sess.UserID); err != nil {
		return e.insertFailed("subscriber", sess, err)
	} else if exists {
		e.sessions.Delete(sess.UserID)
		return model.TextReply{Body: msgAlreadySubscribed}
	}

	sub := e.newSubmission(model.KindSubscriber, sess)
	sub.Location = loc
	sub.Status = model.StatusActive

	if err := e.store.InsertSubmission(ctx, sub); err != nil {
		return e.insertFailed("subscriber", sess, err)
	}

	e.auditor.Record(ctx, "subscriber_registered", map[string]any{
		"phoneNumber":  sess.UserID,
		"voterId":      sub.VoterID,
		"subscriberId": sub.ReferenceCode,
	})
	metrics.SubmissionsTotal.WithLabelValues(string(model.KindSubscriber)).Inc()

	e.sessions.Delete(sess.UserID)
	return model.TextReply{Body: subscriptionConfirmation(sess.Verified)}
}

// resolveLocation interprets the terminal-step input: SKIP yields a nil
// location, a location payload yields coordinates with a map link and a
// best-effort address, anything else is rejected so the caller re-prompts.
func (e *Engine) resolveLocation(ctx context.Context, in model.Input, text string) (*model.Location, bool) {
	switch v := in.(type) {
	case model.TextInput:
		if strings.EqualFold(text, skipKeyword) {
			return nil, true
		}
		return nil, false
	case model.LocationInput:
		loc := &model.Location{
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			MapLink:   fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", v.Latitude, v.Longitude),
		}
		if addr, ok := e.geocoder.ReverseGeocode(ctx, v.Latitude, v.Longitude); ok {
			loc.ActualAddress = addr
		}
		return loc, true
	}
	return nil, false
}

// newSubmission builds the common record shape, denormalizing the identity
// snapshot captured at verification.
func (e *Engine) newSubmission(kind model.SubmissionKind, sess *session.Session) *model.Submission {
	v := sess.Verified
	now := time.Now().UTC()
	return &model.Submission{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Kind:           kind,
		ReferenceCode:  model.NewReferenceCode(kind),
		VoterID:        v.VoterID,
		VoterName:      v.Name,
		PhoneNumber:    sess.UserID,
		Area:           v.Area,
		District:       v.District,
		AssemblyName:   v.AssemblyName,
		PartNumber:     v.PartNumber,
		ParliamentName: v.ParliamentName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// insertFailed logs a store failure and leaves the session in place so the
// user's next message re-attempts the same step with a fresh reference code.
func (e *Engine) insertFailed(kind string, sess *session.Session, err error) model.Reply {
	e.logger.Error("submission write failed",
		zap.Error(err),
		zap.String("kind", kind),
		zap.String("phone_number", sess.UserID))
	return model.TextReply{Body: msgSystemError}
}
