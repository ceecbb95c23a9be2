package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_StartStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewHTTPServer(HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, handler)

	errs := make(chan error, 1)
	go func() { errs <- srv.Start(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	addr, err := srv.Addr(ctx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-errs)
}

func TestHTTPServer_StopBeforeStart(t *testing.T) {
	srv := NewHTTPServer(HTTPConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler())
	assert.NoError(t, srv.Stop(context.Background()))
}
