package stream

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_CopiesAndFlushes(t *testing.T) {
	src := strings.NewReader("{\"type\":\"statements\",\"data\":[]}\n{\"type\":\"image_update\",\"data\":{\"id\":\"a\",\"imageUrl\":\"u\"}}")
	rec := httptest.NewRecorder()

	n, err := Relay(rec, src)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, rec.Flushed)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "\"type\""))
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("client went away") }

func TestRelay_WriteError(t *testing.T) {
	n, err := Relay(brokenWriter{}, strings.NewReader("a\nb\n"))
	assert.ErrorContains(t, err, "client went away")
	assert.Zero(t, n)
}
