// Package whatsapp provides the outbound channel adapter for the WhatsApp
// Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/model"
	"github.com/civicpulse/engagement-platform/internal/render"
	"github.com/civicpulse/engagement-platform/pkg/logger"
	"github.com/civicpulse/engagement-platform/pkg/metrics"
)

// Config holds Cloud API credentials and endpoints.
type Config struct {
	APIURL        string
	Token         string
	PhoneNumberID string
}

// Sender delivers rendered replies to phone numbers. Without a token it runs
// in simulation mode and logs payloads instead of sending them.
type Sender struct {
	httpClient *http.Client
	cfg        Config
	logger     *logger.Logger
}

// NewSender creates a sender.
func NewSender(cfg Config, log *logger.Logger) *Sender {
	return &Sender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		logger:     log,
	}
}

type outbound struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	render.Payload
}

// Send renders and delivers one reply.
func (s *Sender) Send(ctx context.Context, to string, reply model.Reply) error {
	payload := render.Render(reply)

	body := outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Payload:          payload,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	if s.cfg.Token == "" {
		s.logger.Info("simulated outbound message",
			zap.String("to", to),
			zap.String("type", payload.Type),
			zap.ByteString("payload", data))
		metrics.OutboundMessagesTotal.WithLabelValues(payload.Type, "simulated").Inc()
		return nil
	}

	url := fmt.Sprintf("%s/%s/messages", s.cfg.APIURL, s.cfg.PhoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build outbound request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.OutboundMessagesTotal.WithLabelValues(payload.Type, "error").Inc()
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.OutboundMessagesTotal.WithLabelValues(payload.Type, "error").Inc()
		s.logger.Error("WhatsApp API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return fmt.Errorf("whatsapp API returned status %d", resp.StatusCode)
	}

	metrics.OutboundMessagesTotal.WithLabelValues(payload.Type, "ok").Inc()
	return nil
}
