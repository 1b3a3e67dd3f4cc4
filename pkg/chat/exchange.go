package chat

import "context"

// Exchanger is the interface to the remote chat service.
type Exchanger interface {
	// Exchange sends one user message plus a history window and returns
	// the reply text. An empty reply with a nil error means the service
	// answered but had nothing to say; callers substitute their own
	// fallback text.
	Exchange(ctx context.Context, message string, history []Message) (string, error)
}

// ExchangeFunc is an adapter to allow the use of ordinary functions as
// Exchangers.
type ExchangeFunc func(ctx context.Context, message string, history []Message) (string, error)

// Exchange calls the underlying function.
func (f ExchangeFunc) Exchange(ctx context.Context, message string, history []Message) (string, error) {
	return f(ctx, message, history)
}
