package handler

import (
	"encoding/json"
	"net/http"

	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/render"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

// ChatHandler drives the dialogue engine directly, bypassing the messaging
// provider. It backs the dashboard's chat simulator page.
type ChatHandler struct {
	engine *dialogue.Engine
	logger *logger.Logger
}

// NewChatHandler creates a chat simulator handler.
func NewChatHandler(engine *dialogue.Engine, log *logger.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, logger: log}
}

type chatRequest struct {
	PhoneNumber string   `json:"phoneNumber"`
	Message     string   `json:"message"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type chatResponse struct {
	Success bool           `json:"success"`
	Reply   render.Payload `json:"reply"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PhoneNumber == "" || (req.Message == "" && req.Latitude == nil) {
		writeError(w, http.StatusBadRequest, "phoneNumber and message are required")
		return
	}

	var in model.Input
	if req.Latitude != nil && req.Longitude != nil {
		in = model.LocationInput{Latitude: *req.Latitude, Longitude: *req.Longitude}
	} else {
		in = model.TextInput{Body: req.Message}
	}

	reply := h.engine.Handle(r.Context(), req.PhoneNumber, in)

	writeJSON(w, http.StatusOK, chatResponse{
		Success: true,
		Reply:   render.Render(reply),
	})
}
