package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by providers that answered with no text.
var ErrEmptyResponse = errors.New("provider returned empty response")

// Provider turns a prompt into text. Both the question generator and the
// answer scorer sit on top of one.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Name() string
	Model() string
}
