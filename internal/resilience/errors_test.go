package resilience

import (
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient error", NewTransientError(eris.New("upstream 503"), 503), true},
		{"wrapped transient", fmt.Errorf("search: %w", NewTransientError(eris.New("429"), 429)), true},
		{"plain error", eris.New("validation failed"), false},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"message match", eris.New("read tcp: i/o timeout"), true},
		{"dns", eris.New("dial tcp: lookup example.org: no such host"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{http.StatusOK, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := eris.New("inner")
	te := NewTransientError(inner, 502)
	assert.Equal(t, inner, te.Unwrap())
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, 502, te.StatusCode)
}
