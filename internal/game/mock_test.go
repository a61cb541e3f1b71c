// internal/game/mock_test.go
package game

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/jason-s-yu/galactic-uno/internal/api"
	"github.com/jason-s-yu/galactic-uno/internal/models"
	"github.com/sirupsen/logrus"
)

// mockRemote serves canned reads, records every call in order and fails the
// writes named in writeErr.
type mockRemote struct {
	mu    sync.Mutex
	calls []string

	state   api.Result[models.SessionState]
	top     api.Result[*models.Card]
	hand    api.Result[[]models.Card]
	current api.Result[*string]

	writeErr map[string]error

	// when set, every read waits for it to be closed before answering
	gate chan struct{}

	dealtPlayers []int64
	dealtCount   int
	submitted    []string
	created      []string
	joined       []string
}

func newMockRemote() *mockRemote {
	return &mockRemote{writeErr: make(map[string]error)}
}

func (m *mockRemote) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

func (m *mockRemote) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *mockRemote) count(prefix string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *mockRemote) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockRemote) wait() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// serve sets a successful snapshot for all four reads.
func (m *mockRemote) serve(st models.SessionState, top *models.Card, hand []models.Card, current string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = api.Success(st)
	m.top = api.Success(top)
	m.hand = api.Success(hand)
	if current == "" {
		m.current = api.Success[*string](nil)
	} else {
		m.current = api.Success(&current)
	}
}

// failReads makes every read return a connection error.
func (m *mockRemote) failReads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := &api.ConnectionError{Op: "read", Err: io.ErrUnexpectedEOF}
	m.state = api.Failure[models.SessionState](err)
	m.top = api.Failure[*models.Card](err)
	m.hand = api.Failure[[]models.Card](err)
	m.current = api.Failure[*string](err)
}

func (m *mockRemote) failWrite(op, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr[op] = &api.ServerError{Op: op, Status: 400, Message: message}
}

func (m *mockRemote) FetchState(ctx context.Context, id int64) api.Result[models.SessionState] {
	m.record("fetchState")
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockRemote) FetchTopCard(ctx context.Context, id int64) api.Result[*models.Card] {
	m.record("fetchTopCard")
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.top
}

func (m *mockRemote) FetchOwnHand(ctx context.Context, id int64) api.Result[[]models.Card] {
	m.record("fetchHand")
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hand
}

func (m *mockRemote) FetchCurrentPlayer(ctx context.Context, id int64) api.Result[*string] {
	m.record("fetchCurrentPlayer")
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockRemote) write(op string) api.Result[api.Empty] {
	m.record(op)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr[op]; err != nil {
		return api.Failure[api.Empty](err)
	}
	return api.Success(api.Empty{})
}

func (m *mockRemote) StartSession(ctx context.Context, id int64) api.Result[api.Empty] {
	return m.write("start")
}

func (m *mockRemote) DealHands(ctx context.Context, id int64, players []int64, n int) api.Result[api.Empty] {
	res := m.write("deal")
	if res.Success {
		m.mu.Lock()
		m.dealtPlayers = slices.Clone(players)
		m.dealtCount = n
		m.mu.Unlock()
	}
	return res
}

func (m *mockRemote) SubmitMove(ctx context.Context, id int64, cardID string) api.Result[api.Empty] {
	res := m.write("submit")
	m.mu.Lock()
	m.submitted = append(m.submitted, cardID)
	m.mu.Unlock()
	return res
}

func (m *mockRemote) DrawCard(ctx context.Context, id int64) api.Result[api.Empty] {
	return m.write("draw")
}

func (m *mockRemote) AdvanceTurn(ctx context.Context, id int64) api.Result[api.Empty] {
	return m.write("advance")
}

func (m *mockRemote) LeaveSession(ctx context.Context, id int64) api.Result[api.Empty] {
	return m.write("leave")
}

func (m *mockRemote) CreateSession(ctx context.Context, name string, maxPlayers int) api.Result[models.SessionRef] {
	m.record("create")
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr["create"]; err != nil {
		return api.Failure[models.SessionRef](err)
	}
	m.created = append(m.created, name)
	return api.Success(models.SessionRef{ID: 42, Code: "ABC123"})
}

func (m *mockRemote) JoinSession(ctx context.Context, code string) api.Result[models.SessionRef] {
	m.record("join")
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr["join"]; err != nil {
		return api.Failure[models.SessionRef](err)
	}
	m.joined = append(m.joined, code)
	return api.Success(models.SessionRef{ID: 7})
}

// mockRecorder collects recorded actions.
type mockRecorder struct {
	mu      sync.Mutex
	actions []models.Action
}

func (r *mockRecorder) Record(ctx context.Context, a models.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return nil
}

func (r *mockRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.actions))
	for i, a := range r.actions {
		out[i] = a.Type
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var (
	alice = models.Identity{UserID: 1, DisplayName: "alice"}

	tablePlayers = []models.Player{
		{ID: 1, DisplayName: "alice"},
		{ID: 2, DisplayName: "bob"},
		{ID: 3, DisplayName: "carol"},
	}

	red7   = models.Card{ID: "r7", Color: models.ColorRed, Value: "7", Type: models.TypeStandard}
	blue7  = models.Card{ID: "b7", Color: models.ColorBlue, Value: "7", Type: models.TypeStandard}
	blue3  = models.Card{ID: "b3", Color: models.ColorBlue, Value: "3", Type: models.TypeStandard}
	red2   = models.Card{ID: "r2", Color: models.ColorRed, Value: "2", Type: models.TypeStandard}
	wild4  = models.Card{ID: "w4", Color: models.ColorNone, Value: "draw4", Type: models.TypeWild}
	green9 = models.Card{ID: "g9", Color: models.ColorGreen, Value: "9", Type: models.TypeStandard}
)

func inProgress(canStart bool) models.SessionState {
	return models.SessionState{
		ID:         42,
		Code:       "ABC123",
		Name:       "friday",
		Status:     models.StatusInProgress,
		Players:    tablePlayers,
		MaxPlayers: 4,
		CanStart:   canStart,
	}
}

func waiting(canStart bool) models.SessionState {
	st := inProgress(canStart)
	st.Status = models.StatusWaiting
	return st
}

// dealing is a session that was started but whose hands are not dealt yet.
// The server no longer offers the start to anyone.
func dealing() models.SessionState {
	st := inProgress(false)
	st.Status = models.StatusDealing
	return st
}

func newTestSynchronizer(m *mockRemote, opts SyncOptions) *Synchronizer {
	v := NewView(models.SessionRef{ID: 42, Code: "ABC123"}, alice, 4)
	return NewSynchronizer(m, v, opts, quietLogger())
}
