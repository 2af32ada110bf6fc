// Package responder consumes the queue of posted messages and produces
// assistant replies. The text generator behind it is a black box: given a
// queue entry it returns text or fails, and a failure only means no reply
// appears. It can never corrupt the message channel.
package responder

import "context"

// Request carries what a provider needs to draft a reply.
type Request struct {
	SessionCode string
	DisplayName string
	Content     string
	History     []Turn
}

// Turn is one prior exchange, oldest first, for conversational context.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider defines the interface for reply generators.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate produces the reply text for a request
	Generate(ctx context.Context, req Request) (string, error)
}
