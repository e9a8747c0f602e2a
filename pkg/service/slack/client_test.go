package slack_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestClient_WithAPIURL(t *testing.T) {
	var infoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat.postMessage":
			gt.NoError(t, r.ParseForm())
			gt.Value(t, r.Form.Get("channel")).Equal("C123")
			fmt.Fprint(w, `{"ok": true, "channel": "C123", "ts": "1700000000.000100"}`)
		case "/conversations.info":
			infoCalls.Add(1)
			fmt.Fprint(w, `{"ok": true, "channel": {"id": "C123", "name": "case-toasts"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := slack.New("test-token", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	ts, err := svc.PostMessage(ctx, "C123", []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, "hello", false, false), nil, nil),
	}, "hello")
	gt.NoError(t, err).Required()
	gt.Value(t, ts).Equal("1700000000.000100")

	name, err := svc.GetChannelName(ctx, "C123")
	gt.NoError(t, err).Required()
	gt.Value(t, name).Equal("case-toasts")

	// second lookup is served from cache
	_, err = svc.GetChannelName(ctx, "C123")
	gt.NoError(t, err).Required()
	gt.Value(t, infoCalls.Load()).Equal(int32(1))
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if token == "" || channelID == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN or TEST_SLACK_CHANNEL_ID is not set")
	}

	ctx := context.Background()
	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	name, err := svc.GetChannelName(ctx, channelID)
	gt.NoError(t, err).Required()
	gt.String(t, name).NotEqual("")
}
