package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(srv.URL+"/api", 2*time.Second, staticToken("tok-123"), logger), srv
}

func TestFetchStateSendsBearerAndDecodes(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sessions/42/status", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":42,"code":"ABC123","status":"WAITING","maxPlayers":4,"canStart":true,
			"players":[{"id":1,"username":"kevin"},{"id":2,"username":"stuart"}]}`)
	})

	assert.Equal(t, srv.URL+"/api", c.BaseURL())
	res := c.FetchState(context.Background(), 42)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, models.StatusWaiting, res.Data.Status)
	assert.True(t, res.Data.CanStart)
	require.Len(t, res.Data.Players, 2)
	assert.Equal(t, "stuart", res.Data.Players[1].DisplayName)
}

func TestServerErrorCarriesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"It is not your turn"}`)
	})

	res := c.SubmitMove(context.Background(), 1, "c-9")
	require.False(t, res.Success)
	assert.Equal(t, "It is not your turn", res.Message)

	var se *ServerError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusConflict, se.Status)
	assert.True(t, IsServerError(res.Err))
	assert.False(t, IsConnectionError(res.Err))
}

func TestServerErrorFallsBackToStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	res := c.DrawCard(context.Background(), 1)
	require.False(t, res.Success)
	assert.Equal(t, "Error: 500", res.Message)
}

func TestNoContentIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res := c.AdvanceTurn(context.Background(), 7)
	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
}

func TestUnreachableServerIsConnectionError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	res := c.FetchOwnHand(context.Background(), 1)
	require.False(t, res.Success)
	assert.True(t, IsConnectionError(res.Err))
	assert.Equal(t, connectionMessage, res.Message)
}

func TestUndecodableBodyIsConnectionError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>proxy page</html>")
	})

	res := c.FetchTopCard(context.Background(), 1)
	require.False(t, res.Success)
	assert.True(t, IsConnectionError(res.Err))
}

func TestFetchCurrentPlayer(t *testing.T) {
	body := `{"currentPlayer":"kevin"}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})

	res := c.FetchCurrentPlayer(context.Background(), 3)
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "kevin", *res.Data)

	body = `{"currentPlayer":null}`
	res = c.FetchCurrentPlayer(context.Background(), 3)
	require.True(t, res.Success)
	assert.Nil(t, res.Data)
}

func TestWriteOperationsSendExpectedBodies(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.True(t, c.SubmitMove(ctx, 9, "card-1").Success)
	assert.Equal(t, "/api/sessions/9/play", gotPath)
	assert.Equal(t, "card-1", gotBody["cardId"])

	require.True(t, c.DealHands(ctx, 9, []int64{1, 2, 3}, 7).Success)
	assert.Equal(t, "/api/sessions/deal", gotPath)
	assert.EqualValues(t, 9, gotBody["sessionId"])
	assert.EqualValues(t, 7, gotBody["cardsPerPlayer"])
	assert.Len(t, gotBody["players"], 3)

	require.True(t, c.JoinSession(ctx, "XK29QZ").Success)
	assert.Equal(t, "/api/sessions/join", gotPath)
	assert.Equal(t, "XK29QZ", gotBody["code"])

	require.True(t, c.CreateSession(ctx, "minions", 4).Success)
	assert.Equal(t, "/api/sessions", gotPath)
	assert.Equal(t, "WAITING", gotBody["status"])
	assert.EqualValues(t, 4, gotBody["maxPlayers"])

	for path, op := range map[string]func() Result[Empty]{
		"/api/sessions/9/start":    func() Result[Empty] { return c.StartSession(ctx, 9) },
		"/api/sessions/9/draw":     func() Result[Empty] { return c.DrawCard(ctx, 9) },
		"/api/sessions/9/nextTurn": func() Result[Empty] { return c.AdvanceTurn(ctx, 9) },
		"/api/sessions/9/leave":    func() Result[Empty] { return c.LeaveSession(ctx, 9) },
	} {
		require.True(t, op().Success)
		assert.Equal(t, path, gotPath)
	}
}

func TestLoginDecodesConfirmedIdentity(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		io.WriteString(w, `{"access_token":"jwt.value.here","user":{"id":5,"username":"bob"}}`)
	})

	res := c.Login(context.Background(), "bob", "banana")
	require.True(t, res.Success)
	assert.Equal(t, "jwt.value.here", res.Data.AccessToken)
	assert.Equal(t, models.Identity{UserID: 5, DisplayName: "bob"}, res.Data.User)
}

func TestLogoutWithoutTokenMakesNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken(""), nil)
	res := c.Logout(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotAuthenticated)
	assert.False(t, called)
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:1731/api", wsURL("http://localhost:1731/api"))
	assert.Equal(t, "wss://uno.example/api", wsURL("https://uno.example/api"))
}
