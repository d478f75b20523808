package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/efiling-portal/backend/internal/api"
	"github.com/efiling-portal/backend/internal/catalog"
	"github.com/efiling-portal/backend/internal/filing"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e          *echo.Echo
	s          *http.Server
	sessionMgr *session.Manager
	uploadMgr  *upload.Manager
	baseURL    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sessionMgr := session.NewManager(10)
	uploadMgr := upload.NewManager(upload.Options{SettleDelay: time.Millisecond})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		SessionMgr: sessionMgr,
		UploadMgr:  uploadMgr,
		Gate:       filing.NewGate(-1),
		Catalog:    catalog.Default(),
		Version:    "test",
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	e.Listener = ln

	return &testServer{
		e:          e,
		s:          &http.Server{},
		sessionMgr: sessionMgr,
		uploadMgr:  uploadMgr,
		baseURL:    "http://" + ln.Addr().String(),
	}
}

// start runs serve in the background and waits until the server answers
func (ts *testServer) start(t *testing.T, ctx context.Context, lc lifecycle) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ts.e, ts.s, ts.sessionMgr, ts.uploadMgr, lc)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.baseURL + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	return done
}

func waitServe(t *testing.T, done <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(within):
		t.Fatalf("serve did not return within %s", within)
		return nil
	}
}

func TestServe_StopsWhenContextIsCancelled(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := ts.sessionMgr.Create()
	require.NoError(t, err)

	done := ts.start(t, ctx, lifecycle{shutdownTimeout: 5 * time.Second})
	cancel()

	require.NoError(t, waitServe(t, done, 2*time.Second))
	assert.True(t, sess.Closed())
	assert.Equal(t, 0, ts.sessionMgr.Count())

	client := &http.Client{Timeout: time.Second}
	_, err = client.Get(ts.baseURL + "/api/health")
	assert.Error(t, err, "server must stop accepting requests")
}

func TestServe_OpenEventStreamDoesNotBlockShutdown(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := ts.sessionMgr.Create()
	require.NoError(t, err)

	done := ts.start(t, ctx, lifecycle{shutdownTimeout: 5 * time.Second})

	resp, err := http.Get(ts.baseURL + "/api/sessions/" + sess.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: snapshot") {
			break
		}
	}

	cancel()
	require.NoError(t, waitServe(t, done, 2*time.Second))

	rest, _ := io.ReadAll(reader)
	assert.Contains(t, string(rest), "event: closed")
}

func TestServe_RunsCleanupLoop(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := ts.sessionMgr.Create()
	require.NoError(t, err)

	done := ts.start(t, ctx, lifecycle{
		cleanupInterval: 10 * time.Millisecond,
		sessionTimeout:  time.Nanosecond,
		shutdownTimeout: 5 * time.Second,
	})

	assert.Eventually(t, func() bool {
		return ts.sessionMgr.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitServe(t, done, 2*time.Second))
}
