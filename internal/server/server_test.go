package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

type fakeResponder struct {
	response string
	err      error
	owner    string
	message  string
	role     models.Role
}

func (f *fakeResponder) Respond(_ context.Context, owner, message string, role models.Role) (string, error) {
	f.owner, f.message, f.role = owner, message, role
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeResponder) RespondStream(ctx context.Context, owner, message string, role models.Role, onToken func(string) error) (string, error) {
	if _, err := f.Respond(ctx, owner, message, role); err != nil {
		return "", err
	}
	for _, token := range strings.SplitAfter(f.response, " ") {
		if err := onToken(token); err != nil {
			return "", err
		}
	}
	return f.response, nil
}

type fakeHistory struct {
	turns []models.Turn
	err   error
}

func (f *fakeHistory) ListRecent(_ context.Context, _ string, _ int) ([]models.Turn, error) {
	return f.turns, f.err
}

func newTestServer(responder *fakeResponder, history *fakeHistory) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(responder, history, metrics.NewCollector(), logger)
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage(t *testing.T) {
	responder := &fakeResponder{response: "hello alice"}
	srv := newTestServer(responder, &fakeHistory{})

	rec := postJSON(t, srv.Router(), "/api/message", messageRequest{
		Username: "alice",
		Message:  "hi",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello alice", resp.Message)

	assert.Equal(t, "alice", responder.owner)
	assert.Equal(t, "hi", responder.message)
	assert.Equal(t, models.RoleUser, responder.role)
}

func TestHandleMessageValidation(t *testing.T) {
	srv := newTestServer(&fakeResponder{response: "x"}, &fakeHistory{})
	router := srv.Router()

	tests := []struct {
		name string
		req  messageRequest
	}{
		{"missing username", messageRequest{Message: "hi"}},
		{"missing message", messageRequest{Username: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/message", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleMessageModelFailure(t *testing.T) {
	responder := &fakeResponder{err: chat.ErrModelInvocation}
	srv := newTestServer(responder, &fakeHistory{})

	rec := postJSON(t, srv.Router(), "/api/message", messageRequest{
		Username: "alice",
		Message:  "hi",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleDirectiveUsesSystemRole(t *testing.T) {
	responder := &fakeResponder{response: "ack"}
	srv := newTestServer(responder, &fakeHistory{})

	rec := postJSON(t, srv.Router(), "/api/directive", directiveRequest{
		Username:  "alice",
		Directive: "always answer in haiku",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleSystem, responder.role)
	assert.Equal(t, "always answer in haiku", responder.message)
}

func TestHandleHistory(t *testing.T) {
	history := &fakeHistory{turns: []models.Turn{
		{ID: "t1", Owner: "alice", Prompt: "hi", Response: "hello", CreatedAt: time.Now()},
	}}
	srv := newTestServer(&fakeResponder{}, history)

	req := httptest.NewRequest(http.MethodGet, "/api/history/alice", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Owner string        `json:"owner"`
		Turns []models.Turn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Owner)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, "t1", resp.Turns[0].ID)
}

func TestHandleHistoryBadLimit(t *testing.T) {
	srv := newTestServer(&fakeResponder{}, &fakeHistory{})

	req := httptest.NewRequest(http.MethodGet, "/api/history/alice?limit=-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthAndStats(t *testing.T) {
	srv := newTestServer(&fakeResponder{}, &fakeHistory{})
	router := srv.Router()

	for _, path := range []string{"/healthz", "/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHandleMessageWS(t *testing.T) {
	responder := &fakeResponder{response: "streamed reply"}
	srv := newTestServer(responder, &fakeHistory{})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/message/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(messageRequest{Username: "alice", Message: "hi"}))

	var tokens []string
	for {
		var event wsEvent
		require.NoError(t, conn.ReadJSON(&event))

		switch event.Type {
		case "token":
			tokens = append(tokens, event.Content)
		case "done":
			assert.Equal(t, "streamed reply", event.Content)
			assert.Equal(t, "streamed reply", strings.Join(tokens, ""))
			return
		default:
			t.Fatalf("unexpected event: %+v", event)
		}
	}
}
