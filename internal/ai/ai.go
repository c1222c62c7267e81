package ai

import (
	"context"
	"errors"
)

// Message roles, in the shape the model expects.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the ordered context handed to the model.
// ImageURL, when set, is a data URL attached to a user message.
type Message struct {
	Role     string
	Content  string
	ImageURL string
}

// ErrInvocation covers model failures: transport errors, timeouts and
// empty replies all look the same to callers.
var ErrInvocation = errors.New("ai invocation failed")

// Invoker is the single model capability the rest of the system depends on.
// The model is stateless between calls: the message slice is the complete
// context every time.
type Invoker interface {
	Invoke(ctx context.Context, msgs []Message) (string, error)
}
