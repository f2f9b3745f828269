package graph

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrItemNotFound},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusInsufficientStorage, ErrUpstream},
		{http.StatusTooManyRequests, ErrUpstream},
		{http.StatusBadGateway, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := newStatusError("upload", tt.status, "code", "msg")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := newStatusError("download", http.StatusForbidden, "accessDenied", "Access denied")
	assert.EqualError(t, err, "download: status 403 (accessDenied): Access denied")
}
