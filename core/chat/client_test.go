package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/tests"
)

func TestClient_Ask(t *testing.T) {
	var (
		mu         sync.Mutex
		gotMessage string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		gotMessage = req.Message
		mu.Unlock()

		switch r.URL.Path {
		case "/reply":
			_, _ = w.Write([]byte(`{"reply":"School opens at 9."}`))
		case "/message":
			_, _ = w.Write([]byte(`{"message":"Bring a raincoat."}`))
		case "/both":
			_, _ = w.Write([]byte(`{"reply":"first","message":"second"}`))
		case "/empty":
			_, _ = w.Write([]byte(`{}`))
		case "/garbage":
			_, _ = w.Write([]byte(`<html>`))
		default:
			http.Error(w, "down", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "reply field", path: "/reply", want: "School opens at 9."},
		{name: "message field", path: "/message", want: "Bring a raincoat."},
		{name: "reply first", path: "/both", want: "first"},
		{name: "no text", path: "/empty", want: chat.FallbackReply},
		{name: "not json", path: "/garbage", want: chat.FallbackReply},
		{name: "http error", path: "/down", want: chat.UnavailableReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := chat.NewClient(srv.URL+tt.path, time.Second, new(testutil.Logger))
			require.NoError(t, err)

			got, err := c.Ask(context.Background(), "  When does school open?  ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			mu.Lock()
			assert.Equal(t, "When does school open?", gotMessage)
			mu.Unlock()
		})
	}
}

func TestClient_AskUnreachable(t *testing.T) {
	logger := new(testutil.Logger)
	c, err := chat.NewClient("http://127.0.0.1:1/webhook", time.Second, logger)
	require.NoError(t, err)

	got, err := c.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, the assistant is unavailable right now. Please try again later.", got)
	assert.Len(t, logger.Entries(), 1)
}

func TestClient_AskEmpty(t *testing.T) {
	c, err := chat.NewClient("http://127.0.0.1:1/webhook", time.Second, new(testutil.Logger))
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "   ")
	assert.Equal(t, chat.ErrEmptyMessage, err)
}
