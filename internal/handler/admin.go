package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/middleware"
	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/store"
	"github.com/civicpulse/engagement-platform/internal/whatsapp"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

// AdminHandler serves the dashboard API: submission listings, status
// transitions, voter lookups and aggregate counts.
type AdminHandler struct {
	store   store.RecordStore
	sender  *whatsapp.Sender
	auditor dialogue.Auditor
	logger  *logger.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(recordStore store.RecordStore, sender *whatsapp.Sender, auditor dialogue.Auditor, log *logger.Logger) *AdminHandler {
	if auditor == nil {
		auditor = dialogue.NopAuditor{}
	}
	return &AdminHandler{
		store:   recordStore,
		sender:  sender,
		auditor: auditor,
		logger:  log,
	}
}

// ListGrievances handles GET /api/grievances
func (h *AdminHandler) ListGrievances(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindGrievance)
}

// ListSuggestions handles GET /api/suggestions
func (h *AdminHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindSuggestion)
}

// ListVolunteers handles GET /api/volunteers
func (h *AdminHandler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindVolunteer)
}

// ListSubscribers handles GET /api/subscribers
func (h *AdminHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindSubscriber)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request, kind model.SubmissionKind) {
	page, limit := pageParams(r)

	q := store.ListQuery{
		Page:     page,
		Limit:    limit,
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	data, total, err := h.store.ListSubmissions(r.Context(), kind, q)
	if err != nil {
		h.logger.Error("submission listing failed", zap.Error(err), zap.String("kind", string(kind)))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	writeList(w, data, page, limit, total)
}

type updateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// UpdateGrievance handles PATCH /api/grievances/{id}
func (h *AdminHandler) UpdateGrievance(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.KindGrievance)
}

// UpdateSuggestion handles PATCH /api/suggestions/{id}
func (h *AdminHandler) UpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.KindSuggestion)
}

// UpdateVolunteer handles PATCH /api/volunteers/{id}
func (h *AdminHandler) UpdateVolunteer(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.KindVolunteer)
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request, kind model.SubmissionKind) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matched, err := h.store.UpdateSubmissionStatus(r.Context(), kind, id, req.Status, req.Notes)
	if err != nil {
		h.logger.Error("status update failed", zap.Error(err), zap.String("kind", string(kind)))
		writeError(w, http.StatusInternalServerError, "failed to update record")
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Updated"})
}

// Status handles GET /api/status/{ref}: public lookup by reference code.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	if err := middleware.ValidateReferenceCode(ref); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, found, err := h.store.FindByReference(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "ID not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"type":    sub.Kind,
		"data":    sub,
	})
}

// ListVoters handles GET /api/voters
func (h *AdminHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	q := store.VoterQuery{
		Page:     page,
		Limit:    limit,
		Search:   r.URL.Query().Get("search"),
		District: r.URL.Query().Get("district"),
		Gender:   strings.ToUpper(r.URL.Query().Get("gender")),
	}

	data, total, err := h.store.ListVoters(r.Context(), q)
	if err != nil {
		h.logger.Error("voter listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list voters")
		return
	}

	writeList(w, data, page, limit, total)
}

// VerifyVoter handles POST /api/verify-voter
func (h *AdminHandler) VerifyVoter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoterID string `json:"voterId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VoterID == "" {
		writeError(w, http.StatusBadRequest, "voterId is required")
		return
	}

	voter, found, err := h.store.FindVoter(r.Context(), req.VoterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Voter ID not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": voter})
}

// Dashboard handles GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		h.logger.Error("dashboard aggregation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to aggregate counts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": counts})
}

// Notify handles POST /api/admin/notify: push a text message to a phone
// number.
func (h *AdminHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "phoneNumber and message are required")
		return
	}

	if err := middleware.ValidatePhoneNumber(req.PhoneNumber); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateNotifyMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	phone := middleware.NormalizePhone(req.PhoneNumber)

	if err := h.sender.Send(r.Context(), phone, model.TextReply{Body: req.Message}); err != nil {
		h.logger.Error("admin notification failed", zap.Error(err), zap.String("phone_number", phone))
		writeError(w, http.StatusInternalServerError, "failed to send notification")
		return
	}

	h.auditor.Record(r.Context(), "admin_notify", map[string]any{
		"phoneNumber": phone,
		"adminUser":   middleware.GetUserID(r.Context()),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Notification sent to " + phone,
	})
}
