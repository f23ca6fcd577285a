package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"partyvote/internal/app"
	"partyvote/internal/commands"
	"partyvote/internal/config"
	"partyvote/internal/directory"
	"partyvote/internal/store/memory"
)

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	hub     *app.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.NewStore()

	hub := app.NewHub(logger)
	t.Cleanup(hub.Close)

	ledger := app.NewVoteLedger(app.LedgerConfig{Store: st, Notifier: hub, Publisher: hub, Logger: logger})
	require.NoError(t, ledger.Restore(ctx))
	engine := app.NewMatchEngine(app.EngineConfig{Store: st, Publisher: hub, Logger: logger})
	require.NoError(t, engine.Restore(ctx))

	dir, err := directory.New(0, nil, logger)
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Env: "production"}}
	srv := NewServer(cfg, Deps{
		Ledger:     ledger,
		Engine:     engine,
		Dispatcher: commands.NewDispatcher(commands.Config{Ledger: ledger, Engine: engine, Names: dir, Logger: logger}),
		Hub:        hub,
	}, logger)

	return &testEnv{handler: srv.Handler(), store: st, hub: hub}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestVoteAndTally(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","voterName":"alice","target":"<@U2>","category":"kill"}`)
	require.Equal(http.StatusOK, code)
	require.True(resp.Success)

	code, resp = env.do(t, http.MethodGet, "/api/tally/KILL", "")
	require.Equal(http.StatusOK, code)

	var tally TallyResponse
	require.NoError(json.Unmarshal(resp.Data, &tally))
	require.Len(tally.Entries, 1)
	require.Equal("<@U2>", tally.Entries[0].Target)
	require.Equal(1, tally.Entries[0].Count)

	code, resp = env.do(t, http.MethodGet, "/api/tally/hugs", "")
	require.Equal(http.StatusBadRequest, code)
	require.Equal(commands.CodeInvalidCategory, resp.Error.Code)
}

func TestVoteAndMoveRules(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"bob","category":"kill"}`)
	require.Equal(http.StatusBadRequest, code)
	require.Equal(commands.CodeInvalidTarget, resp.Error.Code)

	code, resp = env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"<@U2> <@U3>","category":"kill"}`)
	require.Equal(http.StatusBadRequest, code)
	require.Equal(commands.CodeInvalidTarget, resp.Error.Code)

	code, resp = env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"<@U2>","category":"kill","channel":"random"}`)
	require.Equal(http.StatusForbidden, code)
	require.Equal(commands.CodeWrongChannel, resp.Error.Code)

	code, resp = env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"bob","category":"prayer","channel":"random"}`)
	require.Equal(http.StatusForbidden, code)
	require.Equal(commands.CodeWrongChannel, resp.Error.Code)

	code, resp = env.do(t, http.MethodPost, "/api/moves", `{"playerId":"A","row":0,"col":0,"channel":"random"}`)
	require.Equal(http.StatusForbidden, code)
	require.Equal(commands.CodeWrongChannel, resp.Error.Code)

	_, resp = env.do(t, http.MethodGet, "/api/stats", "")
	var stats StatsResponse
	require.NoError(json.Unmarshal(resp.Data, &stats))
	require.Equal(StatsResponse{}, stats)

	code, _ = env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"<@U2>","category":"kill","channel":"main_chat"}`)
	require.Equal(http.StatusOK, code)
	code, _ = env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"bob","category":"prayer"}`)
	require.Equal(http.StatusOK, code)
}

func TestMovesBoardAndWins(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/moves", `{"playerId":"A","row":1,"col":1}`)
	require.Equal(http.StatusOK, code, string(resp.Data))

	code, resp = env.do(t, http.MethodPost, "/api/moves", `{"playerId":"B","row":1,"col":1}`)
	require.Equal(http.StatusConflict, code)
	require.Equal(commands.CodeCellOccupied, resp.Error.Code)

	code, resp = env.do(t, http.MethodPost, "/api/moves", `{"playerId":"B","row":3,"col":1}`)
	require.Equal(http.StatusBadRequest, code)
	require.Equal(commands.CodeInvalidCoordinate, resp.Error.Code)

	code, _ = env.do(t, http.MethodPost, "/api/moves", `{"playerId":"B"}`)
	require.Equal(http.StatusBadRequest, code)

	_, resp = env.do(t, http.MethodGet, "/api/board", "")
	var board BoardResponse
	require.NoError(json.Unmarshal(resp.Data, &board))
	require.Equal("_ _ _\n_ X _\n_ _ _", board.Text)
	require.Equal("O", string(board.Turn))

	code, resp = env.do(t, http.MethodPost, "/api/board/reset", "")
	require.Equal(http.StatusOK, code)
	require.NoError(json.Unmarshal(resp.Data, &board))
	require.Equal("_ _ _\n_ _ _\n_ _ _", board.Text)
	require.Equal("O", string(board.Turn))

	_, resp = env.do(t, http.MethodGet, "/api/wins", "")
	var wins WinsResponse
	require.NoError(json.Unmarshal(resp.Data, &wins))
	require.Empty(wins.Wins)
}

func TestCommandEndpoint(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/commands", `{"playerId":"U1","playerName":"alice","channel":"main_chat","text":"kill <@U2>"}`)
	require.Equal(http.StatusOK, code)
	var reply commands.Reply
	require.NoError(json.Unmarshal(resp.Data, &reply))
	require.Equal("<@U1> has voted to kill <@U2>", reply.Text)
	require.True(reply.InChannel)

	code, resp = env.do(t, http.MethodPost, "/api/commands", `{"playerId":"U1","channel":"random","text":"kill <@U2>"}`)
	require.Equal(http.StatusForbidden, code)
	require.Equal("You can't do that in this channel.", resp.Error.Message)

	code, _ = env.do(t, http.MethodPost, "/api/commands", `not json`)
	require.Equal(http.StatusBadRequest, code)
}

func TestStorageFailureIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetFailure(errors.New("down"))

	code, resp := env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"bob","category":"prayer"}`)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, commands.CodeStorageUnavailable, resp.Error.Code)
}

func TestHealthStatsAndNotFound(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(http.StatusOK, code)

	env.do(t, http.MethodPost, "/api/votes", `{"voterId":"U1","target":"bob","category":"pray"}`)
	_, resp := env.do(t, http.MethodGet, "/api/stats", "")
	var stats StatsResponse
	require.NoError(json.Unmarshal(resp.Data, &stats))
	require.Equal(StatsResponse{PrayerVotes: 1}, stats)

	code, resp = env.do(t, http.MethodGet, "/nope", "")
	require.Equal(http.StatusNotFound, code)
	require.False(resp.Success)
}
