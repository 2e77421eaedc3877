package events

import (
	"context"
	"fmt"

	"github.com/secretshare/webserver/config"
)

// OpenBackend constructs the broker backend selected by config, or nil
// when the backend is "none".
func OpenBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
