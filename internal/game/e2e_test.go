package game_test

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/auth"
	"github.com/jason-s-yu/galactic-uno/internal/devserver"
	"github.com/jason-s-yu/galactic-uno/internal/game"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type seat struct {
	client *api.Client
	self   models.Identity
}

func discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seatUp(t *testing.T, base, name string) seat {
	t.Helper()
	ctx := context.Background()
	anon := api.NewClient(base, 2*time.Second, nil, discard())
	require.True(t, anon.Register(ctx, name, "", "s3cret!").Success)
	login := anon.Login(ctx, name, "s3cret!")
	require.True(t, login.Success, login.Message)
	return seat{
		client: api.NewClient(base, 2*time.Second, staticToken(login.Data.AccessToken), discard()),
		self:   login.Data.User,
	}
}

// Four players meet in a lobby, the host starts, everyone sees a dealt hand and
// the first turn goes through.
func TestFourPlayerGameAgainstDevServer(t *testing.T) {
	srv, err := devserver.New(devserver.Options{
		HashParams: &auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
		Seed:       2024,
	}, discard())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	base := ts.URL + "/api"
	names := []string{"kevin", "stuart", "bob", "dave"}
	seats := make([]seat, len(names))
	for i, n := range names {
		seats[i] = seatUp(t, base, n)
	}

	ref, err := game.NewLobby(seats[0].client, nil, discard()).Create(ctx, "minions", 4)
	require.NoError(t, err)
	for _, s := range seats[1:] {
		joined, err := game.NewLobby(s.client, nil, discard()).Join(ctx, ref.Code)
		require.NoError(t, err)
		assert.Equal(t, ref.ID, joined.ID)
	}

	opts := game.TableOptions{Sync: game.SyncOptions{Interval: time.Hour, MaxAttempts: 5}, MaxPlayers: 4}
	tables := make([]*game.Table, len(seats))
	for i, s := range seats {
		tbl, report, err := game.EnterTable(ctx, s.client, s.self, ref, opts, discard())
		require.NoError(t, err)
		require.True(t, report.OK(), "%v", report.Err())
		defer tbl.Exit()
		tables[i] = tbl
	}
	assert.True(t, tables[0].View().CanStart)
	assert.False(t, tables[1].View().CanStart)
	assert.Len(t, tables[3].View().Opponents(), 3)

	notice, err := tables[0].Turns().StartGame(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, notice.Title)

	for i, tbl := range tables {
		_, err := tbl.Synchronizer().Sync(ctx)
		require.NoError(t, err)
		v := tbl.View()
		assert.Equal(t, models.StatusInProgress, v.Status, names[i])
		assert.Len(t, v.OwnHand, 7, names[i])
		require.NotNil(t, v.TopCard)
		require.NotNil(t, v.CurrentPlayer)
		assert.Equal(t, "kevin", *v.CurrentPlayer)
		assert.Equal(t, i == 0, v.IsMyTurn())
	}

	// not stuart's turn: rejected locally without touching the server
	v := tables[1].View()
	_, err = tables[1].Turns().PlayCard(ctx, v.OwnHand[0])
	assert.ErrorIs(t, err, game.ErrValidationRejected)

	host := tables[0]
	if playable := game.PlayableCards(host.View()); len(playable) > 0 {
		card := host.View().OwnHand[playable[0]]
		notice, err = host.Turns().PlayCard(ctx, card)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("You played a %s.", card), notice.Description)
		assert.Len(t, host.View().OwnHand, 6)
	} else {
		_, err = host.Turns().DrawCard(ctx)
		require.NoError(t, err)
		assert.Len(t, host.View().OwnHand, 8)
	}

	after := host.View()
	require.NotNil(t, after.CurrentPlayer)
	assert.NotEqual(t, "kevin", *after.CurrentPlayer)
	assert.False(t, after.IsMyTurn())
}
