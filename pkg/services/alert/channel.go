package alert

import (
	"context"
	"fmt"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
)

// Message is the channel-independent alert content. Each channel applies
// its own payload formatting.
type Message struct {
	Subject string
	Body    string
}

// Channel is a notification delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ChannelsFromConfig builds the configured channels. An empty configuration
// yields none, which is valid and disables dispatch.
func ChannelsFromConfig(cfg domain.NotificationConfig) []Channel {
	var channels []Channel
	if cfg.Email != "" {
		channels = append(channels, NewEmailChannel(cfg.SMTPHost, cfg.SMTPFrom, cfg.Email))
	}
	if cfg.SlackWebhook != "" {
		channels = append(channels, NewWebhookChannel(cfg.SlackWebhook))
	}
	return channels
}

func formatMessage(v domain.Violation) Message {
	return Message{
		Subject: fmt.Sprintf("[%s] workspace monitor: %s alert", v.Kind, v.Category),
		Body: fmt.Sprintf("%s\n\nseverity: %s\nsource report: %s",
			v.Message, v.Severity, v.Source),
	}
}
