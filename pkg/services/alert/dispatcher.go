package alert

import (
	"context"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/rs/zerolog"
)

// DeliveryResult records one channel's delivery attempt.
type DeliveryResult struct {
	Channel string
	Err     error
}

func (r DeliveryResult) Succeeded() bool { return r.Err == nil }

// Dispatcher fans a violation out to the configured channels.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Dispatch attempts delivery on every channel independently. One channel's
// failure never prevents the remaining channels from being attempted, and
// failed deliveries are surfaced in the result, not discarded. There are no
// retries within a single dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, v domain.Violation) []DeliveryResult {
	logger := zerolog.Ctx(ctx)

	if len(d.channels) == 0 {
		logger.Info().
			Str("category", string(v.Category)).
			Str("kind", string(v.Kind)).
			Msg("no notification channels configured, skipping dispatch")
		return nil
	}

	msg := formatMessage(v)
	results := make([]DeliveryResult, 0, len(d.channels))
	for _, ch := range d.channels {
		err := ch.Send(ctx, msg)
		if err != nil {
			err = &domain.DeliveryError{Channel: ch.Name(), Err: err}
			logger.Warn().
				Err(err).
				Str("channel", ch.Name()).
				Str("kind", string(v.Kind)).
				Msg("alert delivery failed")
		} else {
			logger.Info().
				Str("channel", ch.Name()).
				Str("kind", string(v.Kind)).
				Msg("alert delivered")
		}
		results = append(results, DeliveryResult{Channel: ch.Name(), Err: err})
	}
	return results
}
