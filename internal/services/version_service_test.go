package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionLatestCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"v1.4.0"}`))
	}))
	defer srv.Close()

	svc := NewVersionService("v1.3.0", srv.URL)

	for i := 0; i < 3; i++ {
		latest := svc.Latest(context.Background())
		require.NotNil(t, latest)
		assert.Equal(t, "v1.4.0", *latest)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestVersionLatestFailureCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewVersionService("v1.3.0", srv.URL)

	assert.Nil(t, svc.Latest(context.Background()))
	assert.Nil(t, svc.Latest(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestVersionLatestNoRegistry(t *testing.T) {
	svc := NewVersionService("v1.3.0", "")
	assert.Nil(t, svc.Latest(context.Background()))
	assert.Equal(t, "v1.3.0", svc.Current())
}
