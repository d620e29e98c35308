// Package extract turns chunks into candidate records using a language model.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/sift"
)

// Defaults for Config.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 60 * time.Second
)

// Ensure Client implements sift.RecordExtractor.
var _ sift.RecordExtractor = (*Client)(nil)

// Config controls extraction calls.
type Config struct {
	// MaxAttempts bounds the service calls made for one chunk, counting the
	// first call and every retry.
	MaxAttempts int

	// Timeout bounds a single service call.
	Timeout time.Duration

	// RetryDelay is the wait before retrying a transient service failure.
	RetryDelay time.Duration

	// Instruction overrides the instruction built from the schema.
	Instruction string
}

// Client asks an ExtractionService for records and validates its responses.
type Client struct {
	service sift.ExtractionService
	config  Config
}

// NewClient creates a new Client. Zero config values take defaults.
func NewClient(service sift.ExtractionService, config Config) *Client {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{service: service, config: config}
}

// Extract returns the candidates the model found in the chunk, each tagged
// valid or invalid against the schema.
//
// A response that cannot be parsed is retried with a correction hint, and a
// transient service failure is retried as is, both within MaxAttempts. Any
// other service failure ends the chunk at once. A chunk that yields no
// parsable response returns *sift.ExtractionError.
func (c *Client) Extract(ctx context.Context, chunk sift.Chunk, schema *sift.Schema) (*sift.Extraction, error) {
	if schema == nil {
		return nil, sift.Errorf(sift.EINVALID, "schema required")
	}
	if err := chunk.Validate(); err != nil {
		return nil, err
	}

	instruction := c.config.Instruction
	if instruction == "" {
		instruction = BuildInstruction(schema)
	}
	req := sift.ExtractionRequest{Text: chunk.Content, Schema: schema, Instruction: instruction}

	fail := func(attempts int, reason sift.ReasonCode, err error) error {
		return &sift.ExtractionError{
			URL:      chunk.SourceURL,
			Chunk:    chunk.Ordinal,
			Attempts: attempts,
			Reason:   reason,
			Err:      err,
		}
	}

	var (
		reason  sift.ReasonCode
		lastErr error
	)
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			req.CorrectionHint = correctionHint(reason, lastErr)
			if reason == sift.ReasonServiceError {
				if err := wait(ctx, c.config.RetryDelay); err != nil {
					return nil, fail(attempt-1, sift.ReasonCanceled, err)
				}
			}
		}

		raw, err := c.complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fail(attempt, sift.ReasonCanceled, ctx.Err())
			}
			if !sift.IsTransient(err) && !errors.Is(err, context.DeadlineExceeded) {
				return nil, fail(attempt, sift.ReasonServiceError, err)
			}
			reason, lastErr = sift.ReasonServiceError, err
			continue
		}

		items, err := ParseResponse(raw)
		if err != nil {
			reason, lastErr = sift.ReasonMalformedResponse, err
			continue
		}

		return &sift.Extraction{
			Candidates: candidates(schema, chunk, items),
			Attempts:   attempt,
		}, nil
	}

	return nil, fail(c.config.MaxAttempts, reason, lastErr)
}

// complete makes one service call under the per-call timeout.
func (c *Client) complete(ctx context.Context, req sift.ExtractionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	return c.service.Complete(ctx, req)
}

func candidates(schema *sift.Schema, chunk sift.Chunk, items []any) []sift.CandidateRecord {
	prov := chunk.Provenance()
	out := make([]sift.CandidateRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, sift.RejectCandidate(prov, chunk.Ordinal, sift.ReasonNotAnObject, "record is not a JSON object"))
			continue
		}
		out = append(out, sift.NewCandidate(schema, obj, prov, chunk.Ordinal))
	}
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
