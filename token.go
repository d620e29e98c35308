package sift

import "context"

// TokenCounter counts tokens in text for a specific model.
// The crawler uses it to report how much chunk text was sent for extraction.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
