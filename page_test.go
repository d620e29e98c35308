package sift_test

import (
	"testing"

	"github.com/fwojciec/sift"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://a.edu/x?page=2", sift.NormalizeURL(" HTTPS://A.EDU/x?page=2#results "))
	assert.Equal(t, "https://a.edu/Faculty", sift.NormalizeURL("https://a.edu/Faculty"))
	assert.Equal(t, "%zz", sift.NormalizeURL("%zz"))
}
