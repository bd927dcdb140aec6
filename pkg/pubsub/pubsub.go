package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "build_status")
	Type    string          `json:"type"`    // Event type (e.g., "progress", "ready", "error")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// TopicBuildStatus carries graph build progress events.
const TopicBuildStatus = "build_status"

// Build states, in the order a build moves through them.
const (
	StateFetchingSeed         = "fetching_seed"
	StateFetchingNeighborhood = "fetching_neighborhood"
	StateAssembling           = "assembling"
	StateLayout               = "layout"
	StateReady                = "ready"
)

// BuildStatus reports the progress of a graph build
type BuildStatus struct {
	State   string `json:"state"`   // fetching_seed, fetching_neighborhood, assembling, layout, ready
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}
