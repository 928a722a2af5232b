package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/dialogue"
	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/whatsapp"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

// WebhookHandler ingests WhatsApp Business webhook calls.
type WebhookHandler struct {
	engine      *dialogue.Engine
	sender      *whatsapp.Sender
	verifyToken string
	logger      *logger.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(engine *dialogue.Engine, sender *whatsapp.Sender, verifyToken string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:      engine,
		sender:      sender,
		verifyToken: verifyToken,
		logger:      log,
	}
}

// Verify handles GET /webhook, the Meta subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.logger.Warn("webhook verification failed", zap.String("mode", mode))
	w.WriteHeader(http.StatusForbidden)
}

// webhookBody mirrors the WhatsApp Business webhook envelope, down to the
// fields this system consumes.
type webhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []incomingMessage `json:"messages"`
				Statuses []struct {
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type incomingMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// Receive handles POST /webhook. The provider expects 200 regardless of
// processing outcome, so all failures are logged and swallowed here.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("webhook body malformed", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if body.Object == "whatsapp_business_account" {
		for _, entry := range body.Entry {
			for _, change := range entry.Changes {
				for _, msg := range change.Value.Messages {
					h.process(r, msg)
				}
				for _, status := range change.Value.Statuses {
					h.logger.Debug("delivery status", zap.String("status", status.Status))
				}
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) process(r *http.Request, msg incomingMessage) {
	in := toInput(msg)

	reply := h.engine.Handle(r.Context(), msg.From, in)

	if err := h.sender.Send(r.Context(), msg.From, reply); err != nil {
		h.logger.Error("failed to send reply",
			zap.Error(err),
			zap.String("phone_number", msg.From))
	}
}

// toInput maps a provider message to the engine's input union. Interactive
// replies collapse to their row/button ID; unsupported message types become a
// placeholder text that no step accepts.
func toInput(msg incomingMessage) model.Input {
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			return model.TextInput{Body: msg.Text.Body}
		}
	case "interactive":
		if msg.Interactive != nil {
			if br := msg.Interactive.ButtonReply; br != nil {
				if br.ID != "" {
					return model.TextInput{Body: br.ID}
				}
				return model.TextInput{Body: br.Title}
			}
			if lr := msg.Interactive.ListReply; lr != nil {
				if lr.ID != "" {
					return model.TextInput{Body: lr.ID}
				}
				return model.TextInput{Body: lr.Title}
			}
		}
	case "location":
		if msg.Location != nil {
			return model.LocationInput{
				Latitude:  msg.Location.Latitude,
				Longitude: msg.Location.Longitude,
			}
		}
	}
	return model.TextInput{Body: fmt.Sprintf("[%s message]", msg.Type)}
}
