package bus

import (
	"fmt"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// New creates a new event bus based on configuration. Channel is for
// single-process deployments; NATS for distributed ones.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
