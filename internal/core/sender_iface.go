package core

import "context"

// WebsocketSender delivers already-encoded messages to connections.
// The local registry implements it, and so does every downstream peer hub.
type WebsocketSender interface {
	Send(ctx context.Context, id ConnID, data string) error
	SendAll(ctx context.Context, data string) error
	SendAllExcept(ctx context.Context, except ConnID, data string) error
}
