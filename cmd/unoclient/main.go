// cmd/unoclient is the terminal client: it signs in, creates or joins a session
// and plays it against a remote server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/auth"
	"github.com/jason-s-yu/galactic-uno/internal/cache"
	"github.com/jason-s-yu/galactic-uno/internal/config"
	"github.com/jason-s-yu/galactic-uno/internal/game"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/jason-s-yu/galactic-uno/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

type app struct {
	cfg    config.Config
	logger *logrus.Logger
	prefs  *store.Prefs
	auth   *auth.Store
	client *api.Client
	lobby  *game.Lobby

	recorder game.ActionRecorder
	closers  []func() error
}

func main() {
	profile := flag.String("profile", "default", "profile name, keeps several accounts apart on one machine")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-profile name] <register|login|logout|create|join|play|whoami>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, *profile)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer a.close()

	switch cmd := flag.Arg(0); cmd {
	case "register":
		err = a.register(ctx)
	case "login":
		err = a.login(ctx)
	case "logout":
		err = a.logout(ctx)
	case "whoami":
		err = a.whoami()
	case "create":
		err = a.create(ctx)
	case "join":
		err = a.join(ctx, flag.Arg(1))
	case "play":
		err = a.play(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		pterm.Error.Println(api.UserMessage(err))
		os.Exit(1)
	}
}

func newApp(ctx context.Context, profile string) (*app, error) {
	cfg := config.Load()
	logger := cfg.NewLogger()
	logger.SetOutput(os.Stderr)
	a := &app{cfg: cfg, logger: logger}

	var backend store.Backend
	switch cfg.StoreBackend {
	case "redis":
		rb, err := store.ConnectRedisBackend(cfg.RedisAddr, cfg.RedisDB, profile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rb.Close)
		backend = rb
	default:
		path := cfg.StorePath
		if profile != "default" {
			path += "." + profile
		}
		backend = store.NewFileBackend(path)
	}
	a.prefs = store.NewPrefs(backend)

	var verifier *auth.Verifier
	if cfg.AuthPublicKeyPath != "" {
		v, err := auth.LoadVerifier(cfg.AuthPublicKeyPath)
		if err != nil {
			return nil, err
		}
		verifier = v
	}
	a.auth = auth.NewStore(a.prefs, verifier, logger)
	if err := a.auth.Restore(ctx); err != nil {
		logger.WithError(err).Warn("could not restore saved sign-in")
	}

	a.client = api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, a.auth, logger)
	a.lobby = game.NewLobby(a.client, a.prefs, logger)

	if cfg.RecordActions {
		rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("action recording disabled")
		} else {
			a.closers = append(a.closers, rdb.Close)
			a.recorder = cache.NewPublisher(rdb, cfg.HistorianQueueName)
		}
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.WithError(err).Debug("close failed")
		}
	}
}

func (a *app) requireAuth() error {
	if !a.auth.IsAuthenticated() {
		return errors.New("not signed in; run login first")
	}
	return nil
}

func (a *app) register(ctx context.Context) error {
	username, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Username").Show()
	email, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Email").Show()
	password, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Password").WithMask("*").Show()

	res := a.client.Register(ctx, username, email, password)
	if !res.Success {
		return res.Err
	}
	pterm.Success.Printfln("Account %s created. Run login to sign in.", res.Data.DisplayName)
	return nil
}

func (a *app) login(ctx context.Context) error {
	username, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Username").Show()
	password, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Password").WithMask("*").Show()

	res := a.client.Login(ctx, username, password)
	if !res.Success {
		return res.Err
	}
	if err := a.auth.SetAuth(ctx, res.Data.AccessToken, res.Data.User); err != nil {
		return err
	}
	pterm.Success.Printfln("Signed in as %s.", res.Data.User.DisplayName)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if a.auth.IsAuthenticated() {
		if res := a.client.Logout(ctx); !res.Success {
			a.logger.WithError(res.Err).Warn("server logout failed")
		}
	}
	// local sign-out happens regardless of the server
	if err := a.auth.Clear(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Signed out.")
	return nil
}

func (a *app) whoami() error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	id := a.auth.Identity()
	pterm.Info.Printfln("%s (id %d)", id.DisplayName, id.UserID)
	return nil
}

func (a *app) create(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Session name").Show()
	maxStr, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Max players (2-10)").
		WithDefaultValue(strconv.Itoa(store.DefaultMaxPlayers)).
		Show()
	maxPlayers, err := strconv.Atoi(maxStr)
	if err != nil {
		return game.ErrInvalidMaxPlayers
	}

	ref, err := a.lobby.Create(ctx, name, maxPlayers)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Session created. Share the code %s, then run play.", pterm.LightCyan(ref.Code))
	return nil
}

func (a *app) join(ctx context.Context, code string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if code == "" {
		code, _ = pterm.DefaultInteractiveTextInput.WithDefaultText("Session code").Show()
	}
	ref, err := a.lobby.Join(ctx, code)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Joined session %s. Run play to take your seat.", ref.Code)
	return nil
}

// Menu entries of the table loop.
const (
	optStart   = "Start game"
	optPlay    = "Play a card"
	optDraw    = "Draw a card"
	optRefresh = "Refresh"
	optWait    = "Wait for my turn"
	optLeave   = "Leave session"
	optQuit    = "Quit (stay seated)"
)

func (a *app) play(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	active, ok := a.lobby.Active(ctx)
	if !ok {
		return errors.New("no active session; run create or join first")
	}

	spinner, _ := pterm.DefaultSpinner.Start("Connecting to session " + active.Ref.Code + " at " + a.client.BaseURL() + "...")
	table, report, err := game.EnterTable(ctx, a.client, a.auth.Identity(), active.Ref, game.TableOptions{
		Sync:           game.SyncOptions{Interval: a.cfg.SyncInterval, MaxAttempts: a.cfg.SyncMaxAttempts},
		CardsPerPlayer: a.cfg.CardsPerPlayer,
		MaxPlayers:     active.MaxPlayers,
		Recorder:       a.recorder,
	}, a.logger)
	if err != nil {
		spinner.Fail()
		return err
	}
	defer table.Exit()
	if !report.OK() {
		spinner.Warning("Connected with errors: " + api.UserMessage(report.Err()))
	} else {
		spinner.Success("Connected")
	}

	a.watchEvents(ctx, table)
	a.watchAuth(ctx, table)

	for ctx.Err() == nil {
		v := table.View()
		renderTable(v, table.Synchronizer().Budget())
		if v.Status == models.StatusFinished {
			pterm.Info.Println("The game is over.")
			return a.leave(ctx, table)
		}

		choice, err := pterm.DefaultInteractiveSelect.WithOptions(menu(v, table.Synchronizer().Suspended())).Show()
		if err != nil {
			return err
		}
		switch choice {
		case optStart:
			a.report(table.Turns().StartGame(ctx))
		case optPlay:
			card, ok := pickCard(v)
			if !ok {
				continue
			}
			a.report(table.Turns().PlayCard(ctx, card))
		case optDraw:
			a.report(table.Turns().DrawCard(ctx))
		case optRefresh:
			if _, err := table.Refresh(ctx); err != nil {
				showNotice(game.Describe(err), true)
			}
		case optWait:
			a.waitForChange(ctx, table)
		case optLeave:
			return a.leave(ctx, table)
		case optQuit:
			return nil
		}
	}
	return ctx.Err()
}

func (a *app) leave(ctx context.Context, table *game.Table) error {
	if err := table.Turns().Leave(ctx); err != nil {
		return err
	}
	a.lobby.Forget(ctx)
	pterm.Success.Println("You left the session.")
	return nil
}

func (a *app) report(n game.Notice, err error) {
	if err != nil {
		showNotice(game.Describe(err), true)
		return
	}
	showNotice(n, false)
}

// waitForChange blocks until the view changes, the wait times out or
// synchronization is suspended.
func (a *app) waitForChange(ctx context.Context, table *game.Table) {
	spinner, _ := pterm.DefaultSpinner.Start("Waiting for the table to change...")
	_, err := table.AwaitChange(ctx, a.waitTimeout())
	switch {
	case err == nil:
		spinner.Success()
	case errors.Is(err, game.ErrSyncSuspended):
		spinner.Warning("Synchronization stopped after repeated failures. Choose Refresh to resume.")
	case errors.Is(err, context.DeadlineExceeded):
		spinner.Info("Nothing changed yet.")
	default:
		spinner.Stop()
	}
}

// waitTimeout covers a few polling intervals, enough for another player's move
// to show up.
func (a *app) waitTimeout() time.Duration {
	interval := a.cfg.SyncInterval
	if interval <= 0 {
		interval = game.DefaultSyncInterval
	}
	return 10 * interval
}

// watchEvents turns pushed change events into resync nudges. Without the stream
// the table still updates from its polling.
func (a *app) watchEvents(ctx context.Context, table *game.Table) {
	events, err := a.client.Subscribe(ctx, table.View().SessionID)
	if err != nil {
		a.logger.WithError(err).Info("live events unavailable, relying on polling")
		return
	}
	go func() {
		for range events {
			table.Nudge()
		}
	}()
}

// watchAuth stops synchronization when the user signs out elsewhere in the process.
func (a *app) watchAuth(ctx context.Context, table *game.Table) {
	states, cancel := a.auth.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case st, ok := <-states:
				if !ok {
					return
				}
				if !st.Authenticated {
					table.Exit()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
