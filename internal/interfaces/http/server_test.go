package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/internal/config"
)

func TestNewServer(t *testing.T) {
	mux := http.NewServeMux()
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 18080, ReadTimeout: time.Second, WriteTimeout: time.Second}

	server := NewServer(cfg, mux, nil)

	require.NotNil(t, server)
	assert.Equal(t, "127.0.0.1:18080", server.srv.Addr)
	assert.Equal(t, time.Second, server.srv.ReadTimeout)
	assert.Equal(t, http.Handler(mux), server.Handler())
}

func TestServer_StartStop(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}
	server := NewServer(cfg, http.NewServeMux(), nil)

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, server.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
