// Package sms delivers phone one-time passwords
package sms

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is one text message to a phone number in E.164 form
type Message struct {
	To   string
	Text string
}

// Provider sends text messages via a specific backend
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}

// LogProvider logs messages instead of sending them; used until an SMS gateway is configured
type LogProvider struct {
	logger *zap.Logger
}

// NewLogProvider creates a log-only provider
func NewLogProvider(logger *zap.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

// Name returns the provider name
func (p *LogProvider) Name() string {
	return "log"
}

// Send logs the message and returns a fake message id
func (p *LogProvider) Send(ctx context.Context, msg Message) (string, error) {
	id := fmt.Sprintf("log-%s", uuid.New().String())
	p.logger.Info("sms logged (not sent)",
		zap.String("provider", p.Name()),
		zap.String("to", msg.To),
		zap.String("text", msg.Text),
		zap.String("message_id", id),
	)
	return id, nil
}
