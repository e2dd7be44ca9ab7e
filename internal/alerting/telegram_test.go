package alerting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/watchlist"
)

func testNotifier(srv *httptest.Server) *TelegramNotifier {
	tn := NewTelegramNotifier(TelegramConfig{BotToken: "token", ChatID: "42"})
	tn.apiBase = srv.URL
	tn.httpClient = srv.Client()
	return tn
}

func TestTelegramNotifySendsPhoto(t *testing.T) {
	var gotChatID, gotCaption string
	var gotPhoto []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")

		file, _, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		gotPhoto = make([]byte, 4)
		_, err = file.Read(gotPhoto)
		require.NoError(t, err)

		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := testNotifier(srv)
	err := tn.Notify(context.Background(), Alert{
		Decision: Decision{
			Time:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			Mode:  watchlist.Blacklist,
			Name:  "Mallory",
			Score: 0.73,
		},
		Frame: []byte{0xff, 0xd8, 0xff, 0xe0},
	})
	require.NoError(t, err)

	assert.Equal(t, "42", gotChatID)
	assert.Contains(t, gotCaption, "Mallory")
	assert.Contains(t, gotCaption, "0.730")
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, gotPhoto)
}

func TestTelegramNotifyFallsBackToMessage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := testNotifier(srv)
	err := tn.Notify(context.Background(), Alert{
		Decision: Decision{Time: time.Now(), Mode: watchlist.Whitelist, Score: 0.31},
	})
	require.NoError(t, err)
	assert.Equal(t, "/bottoken/sendMessage", gotPath)
}

func TestTelegramNotifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	tn := testNotifier(srv)
	err := tn.Notify(context.Background(), Alert{
		Decision: Decision{Time: time.Now(), Mode: watchlist.Blacklist, Name: "x", Score: 0.9},
		Frame:    []byte{1},
	})
	assert.ErrorContains(t, err, "bot was blocked")
}

func TestTelegramNotifyUnconfigured(t *testing.T) {
	tn := NewTelegramNotifier(TelegramConfig{})
	err := tn.Notify(context.Background(), Alert{Decision: Decision{Time: time.Now()}})
	assert.Error(t, err)
}
