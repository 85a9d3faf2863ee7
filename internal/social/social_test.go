package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const validWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func postContent(jsonBody string) string {
	return "Launching my token!\n!pumpbot\n```json\n" + jsonBody + "\n```\n"
}

const validJSON = `{
  "name": "Test Token",
  "symbol": "TEST",
  "wallet": "` + validWallet + `",
  "description": "A test token",
  "image": "https://example.com/image.jpg"
}`

func TestExtractTokenData(t *testing.T) {
	data, err := ExtractTokenData(postContent(validJSON))
	require.NoError(t, err)
	assert.Equal(t, "Test Token", data.Name)
	assert.Equal(t, "TEST", data.Symbol)
	assert.NoError(t, data.Validate())

	for name, content := range map[string]string{
		"no marker":     "```json\n" + validJSON + "\n```",
		"no code block": "!pumpbot " + validJSON,
		"bad json":      postContent("{name: nope"),
	} {
		_, err := ExtractTokenData(content)
		appErr, ok := apperr.As(err)
		require.True(t, ok, name)
		assert.Equal(t, "Invalid post format", appErr.Label, name)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	d := TokenData{
		Name:        strings.Repeat("n", 51),
		Symbol:      "lowercase123",
		Wallet:      "0x123",
		Description: strings.Repeat("d", 501),
		Image:       "https://example.com/page.html",
	}
	err := d.Validate()
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid token data", appErr.Label)
	assert.ElementsMatch(t, []string{
		"Token name must be 50 characters or less",
		"Token symbol must be 10 characters or less",
		"Token symbol must be uppercase",
		"Description must be 500 characters or less",
		"Invalid Solana wallet address",
		"Invalid image URL - must be a direct link to image file",
	}, appErr.Reasons)

	appErr, ok = apperr.As((&TokenData{}).Validate())
	require.True(t, ok)
	assert.Len(t, appErr.Reasons, 5)
}

func TestIsImageURL(t *testing.T) {
	for url, want := range map[string]bool{
		"https://example.com/a.PNG":      true,
		"https://i.imgur.com/abc":        true,
		"https://arweave.net/xyz":        true,
		"ipfs://bafy123":                 true,
		"https://notimgur.com.evil/x":    false,
		"https://example.com/index.html": false,
		"not a url":                      false,
	} {
		assert.Equal(t, want, isImageURL(url), url)
	}
}

type stubPosts struct {
	post  *Post
	err   error
	calls int
}

func (s *stubPosts) FetchPost(context.Context, string, string) (*Post, error) {
	s.calls++
	return s.post, s.err
}

type countingCreator struct {
	inner *SimulatedCreator
	calls int
}

func (c *countingCreator) CreateToken(ctx context.Context, d TokenData) (*CreatedToken, error) {
	c.calls++
	return c.inner.CreateToken(ctx, d)
}

func newLauncher(t *testing.T, posts PostFetcher) (*Launcher, *countingCreator, *memory.Store, *events.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.New()
	bus := events.NewBus(logger, 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })
	creator := &countingCreator{inner: NewSimulatedCreator(logger)}
	return NewLauncher(posts, creator, registry.New(store, bus, logger), logger), creator, store, bus
}

func TestLaunch(t *testing.T) {
	posts := &stubPosts{post: &Post{ID: "p1", Content: postContent(validJSON), Author: Author{Name: "TestAgent"}}}
	l, creator, store, bus := newLauncher(t, posts)

	published := make(chan events.Event, 1)
	bus.SubscribeFunc(events.LaunchCreated, func(_ context.Context, e events.Event) error {
		published <- e
		return nil
	})

	res, err := l.Launch(context.Background(), LaunchRequest{AccessKey: "k", PostID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, "TestAgent", res.Agent)
	assert.Equal(t, "https://www.moltbook.com/post/p1", res.PostURL)
	assert.Len(t, res.TokenAddress, 44)
	assert.NotEmpty(t, res.TxHash)
	assert.NotEmpty(t, res.BondingCurveAddress)
	assert.Equal(t, Rewards{AgentShare: "60%", LiquidityShare: "30%", PlatformShare: "10%", AgentWallet: validWallet}, res.Rewards)
	assert.Equal(t, 1, creator.calls)

	rec, err := store.Get(context.Background(), res.TokenAddress)
	require.NoError(t, err)
	assert.Equal(t, "moltbook", rec.Platform)
	require.NotNil(t, rec.PostID)
	assert.Equal(t, "p1", *rec.PostID)

	select {
	case e := <-published:
		assert.Equal(t, res.TokenAddress, e.(events.LaunchCreatedEvent).Launch.Address)
	case <-time.After(time.Second):
		t.Fatal("launch event not published")
	}

	_, err = l.Launch(context.Background(), LaunchRequest{AccessKey: "k", PostID: "p1"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
	assert.Equal(t, res.TokenAddress, appErr.Details["token_address"])
	assert.Equal(t, 1, creator.calls)
}

func TestLaunchRejectsBeforeCreate(t *testing.T) {
	tests := []struct {
		name    string
		req     LaunchRequest
		content string
		kind    apperr.Kind
	}{
		{"missing key", LaunchRequest{PostID: "p"}, postContent(validJSON), apperr.KindValidation},
		{"no marker", LaunchRequest{AccessKey: "k", PostID: "p"}, "```json\n" + validJSON + "\n```", apperr.KindValidation},
		{"invalid data", LaunchRequest{AccessKey: "k", PostID: "p"}, postContent(`{"name":"x"}`), apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, creator, _, _ := newLauncher(t, &stubPosts{post: &Post{Content: tt.content}})
			_, err := l.Launch(context.Background(), tt.req)
			assert.True(t, apperr.IsKind(err, tt.kind), "got %v", err)
			assert.Zero(t, creator.calls)
		})
	}
}

func TestLaunchPostFetchError(t *testing.T) {
	l, creator, _, _ := newLauncher(t, &stubPosts{err: postNotFound()})
	_, err := l.Launch(context.Background(), LaunchRequest{AccessKey: "k", PostID: "p"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Zero(t, creator.calls)

	l, _, _, _ = newLauncher(t, &stubPosts{err: apperr.Internal("Failed to fetch post", errors.New("timeout"))})
	_, err = l.Launch(context.Background(), LaunchRequest{AccessKey: "k", PostID: "p"})
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestClientFetchPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/posts/p1":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"post":{"id":"p1","content":"hello","author":{"name":"Agent"}}}`))
		case "/api/v1/posts/private":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))

	post, err := c.FetchPost(context.Background(), "p1", "secret")
	require.NoError(t, err)
	assert.Equal(t, &Post{ID: "p1", Content: "hello", Author: Author{Name: "Agent"}}, post)

	_, err = c.FetchPost(context.Background(), "missing", "secret")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = c.FetchPost(context.Background(), "private", "secret")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
