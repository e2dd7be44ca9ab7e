package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/alerting"
	"lookout/internal/detection"
	"lookout/internal/model"
	"lookout/internal/watchlist"
)

// sessionFactoryFor builds sessions the way cmd/lookout does: the matcher
// loads its models synchronously and a load failure fails the factory.
func sessionFactoryFor(provider FrameProvider, endpoint string) SessionFactory {
	return func() (*Session, error) {
		matcher := watchlist.NewMatcher(
			detection.NewDetector(model.NewHTTPSession(model.HTTPSessionConfig{Endpoint: endpoint, Name: "face-detect"})),
			detection.NewEmbedder(model.NewHTTPSession(model.HTTPSessionConfig{Endpoint: endpoint, Name: "face-embed"})),
			nil,
		)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := matcher.Initialize(ctx); err != nil {
			matcher.Close()
			return nil, err
		}

		decider := alerting.NewDecider(watchlist.Blacklist, alerting.DefaultThreshold, 0)
		return NewSession(SessionConfig{}, provider, matcher, decider, alerting.LogNotifier{}, nil, nil), nil
	}
}

func TestManagerStartFailsWhenModelsDoNotLoad(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	provider := &fakeProvider{}
	manager := NewManager(sessionFactoryFor(provider, srv.URL))

	err := manager.StartSession()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build session")
	assert.False(t, manager.Running())
	assert.Zero(t, manager.Stats().FramesSkipped)
}
