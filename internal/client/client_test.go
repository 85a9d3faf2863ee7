package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/live"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestPrepareAndConfirm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/launch/prepare":
			var req launch.PrepareRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success":     true,
				"message":     "prepared",
				"transaction": "AQID",
				"mintKeypair": "secret",
				"mintAddress": "MINT",
				"metadataUri": "http://x/metadata/a.json",
				"creator":     req.Wallet,
			})
		case "/api/launch/confirm":
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"error":   "Transaction not found",
				"errors":  []string{"Could not find transaction"},
				"hint":    "Try again in a few seconds.",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second, zaptest.NewLogger(t))
	assert.Equal(t, srv.URL, c.BaseURL())

	unsigned, err := c.Prepare(context.Background(), launch.PrepareRequest{Name: "T", Wallet: "W"})
	require.NoError(t, err)
	assert.Equal(t, "AQID", unsigned.Transaction)
	assert.Equal(t, "MINT", unsigned.MintAddress)
	assert.Equal(t, "W", unsigned.Creator)

	_, err = c.Confirm(context.Background(), launch.ConfirmRequest{TxSignature: "sig"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	apiErr := err.(*APIError)
	assert.Equal(t, "Transaction not found", apiErr.Label)
	assert.Equal(t, "Try again in a few seconds.", apiErr.Hint)
	assert.Contains(t, apiErr.Error(), "Could not find transaction")
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/images", r.URL.Path)
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, data)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "url": "http://x/uploads/f.png", "filename": "f.png", "size": len(data), "mimetype": "image/png",
		})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	img, err := New(srv.URL, 5*time.Second, zaptest.NewLogger(t)).UploadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://x/uploads/f.png", img.URL)
	assert.Equal(t, int64(len(pngHeader)), img.Size)
}

func TestListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/launches":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"launches": []map[string]interface{}{{"address": "A", "name": "Alpha"}},
				"count":    1,
			})
		case "/api/tokens":
			assert.Equal(t, "createdAt", r.URL.Query().Get("sort"))
			assert.False(t, r.URL.Query().Has("order"))
			writeJSON(w, http.StatusOK, registry.Page{
				Tokens:     []*models.TokenLaunch{{Address: "A"}},
				Pagination: registry.Pagination{Page: 1, Limit: 50, Total: 1, Pages: 1},
				Stats:      &models.Stats{TotalLaunches: 1},
			})
		case "/api/tokens/A":
			writeJSON(w, http.StatusOK, models.TokenLaunch{Address: "A", Symbol: "ALP"})
		case "/api/health":
			writeJSON(w, http.StatusOK, Health{Status: "ok", Database: "connected"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Token not found"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	launches, err := c.Launches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	assert.Equal(t, "Alpha", launches[0].Name)

	page, err := c.Tokens(ctx, registry.Query{Sort: "createdAt"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Stats.TotalLaunches)

	tok, err := c.Token(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "ALP", tok.Symbol)

	_, err = c.Token(ctx, "B")
	assert.True(t, IsStatus(err, http.StatusNotFound))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connected", h.Database)
}

func TestWatch(t *testing.T) {
	hub := live.NewHub(live.DefaultConfig(), nil, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer hub.Close()

	c := New(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hello := make(chan struct{}, 1)
	got := make(chan *models.TokenLaunch, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Watch(ctx, func() { hello <- struct{}{} }, func(rec *models.TokenLaunch) { got <- rec })
	}()

	select {
	case <-hello:
	case <-time.After(2 * time.Second):
		t.Fatal("no hello received")
	}
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Handle(ctx, events.NewLaunchCreated(&models.TokenLaunch{Address: "LIVE", Symbol: "LV"})))

	select {
	case rec := <-got:
		assert.Equal(t, "LIVE", rec.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("no launch received")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return")
	}
}

func TestLiveURL(t *testing.T) {
	for in, want := range map[string]string{
		"http://localhost:3000":      "ws://localhost:3000/ws",
		"https://pump.example/base/": "wss://pump.example/base/ws",
	} {
		got, err := liveURL(strings.TrimRight(in, "/"))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
