package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrAdapterNotFound = errors.New("channel adapter not found")
	ErrIgnoredUpdate   = errors.New("update carries no user message")
)

// Adapter translates between a vendor's webhook/send formats and the
// normalized message types. Configure receives the adapter's config block
// from the channels section of the config file.
type Adapter interface {
	Name() string
	Configure(config map[string]any) error

	// Parse extracts zero or more messages from a webhook body. Payloads
	// that are valid but carry nothing to answer (delivery receipts, edits)
	// return (nil, nil).
	Parse(creatorID uuid.UUID, body []byte) ([]InboundMessage, error)

	// Send delivers an assistant reply to the end user.
	Send(ctx context.Context, msg OutboundMessage) error
}

// Verifier is implemented by adapters whose vendor probes the webhook URL
// before delivering events (WhatsApp's hub.challenge handshake).
type Verifier interface {
	HandleVerification(w http.ResponseWriter, r *http.Request) bool
}

// Registry holds configured adapters by channel name.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register configures an adapter and adds it to the registry. A nil config
// registers the adapter with its defaults.
func (r *Registry) Register(adapter Adapter, config map[string]any) error {
	if err := adapter.Configure(config); err != nil {
		return fmt.Errorf("configure %s adapter: %w", adapter.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
	return nil
}

// Get returns the adapter for a channel name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	return adapter, nil
}

// List returns registered channel names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// decodeConfig maps a raw config block onto an adapter's typed config.
func decodeConfig(config map[string]any, target any) error {
	if config == nil {
		return nil
	}
	if err := mapstructure.Decode(config, target); err != nil {
		return fmt.Errorf("decode adapter config: %w", err)
	}
	return nil
}
