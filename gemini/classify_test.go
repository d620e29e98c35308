package gemini

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/sift"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"server error", genai.APIError{Code: 503, Status: "UNAVAILABLE"}, true},
		{"wrapped server error", fmt.Errorf("generate: %w", genai.APIError{Code: 500}), true},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, false},
		{"unauthenticated", genai.APIError{Code: 401}, false},
		{"other error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classify(tt.err)

			assert.Equal(t, tt.transient, sift.IsTransient(got))
			assert.Equal(t, tt.err.Error(), got.Error())
		})
	}
}
