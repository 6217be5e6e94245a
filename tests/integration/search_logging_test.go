package integration

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/nilch/nilch-api/internal/brave"
	"github.com/nilch/nilch-api/internal/cache"
	"github.com/nilch/nilch-api/internal/search"
	"github.com/nilch/nilch-api/internal/server"
	"github.com/nilch/nilch-api/internal/server/routes"
)

type loggingTestEnv struct {
	app  *fiber.App
	logs *bytes.Buffer
}

func newLoggingTestEnv(t *testing.T, upstreamURL string, httpClient *http.Client) loggingTestEnv {
	t.Helper()

	logger := logrus.New()
	buf := &bytes.Buffer{}
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(buf)

	store, err := cache.NewStore(20)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	braveClient := brave.NewClient(httpClient, logger, upstreamURL, []string{"integration-key"})
	resolver := search.NewResolver(store, braveClient, logger)

	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		CORSOrigins: []string{"*"},
		ListenPort:  5001,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	routes.RegisterAPIRoutes(app, &routes.API{
		Logger:      logger,
		Search:      resolver,
		Images:      braveClient,
		DefaultSafe: "strict",
	})
	return loggingTestEnv{app: app, logs: buf}
}

func (env loggingTestEnv) AssertLogContains(t *testing.T, substr string) {
	t.Helper()
	if !strings.Contains(env.logs.String(), substr) {
		t.Fatalf("expected logs to contain %s, got %s", substr, env.logs.String())
	}
}

func TestSearchEmitsCacheHitLogFields(t *testing.T) {
	var upstreamCalls atomic.Int64
	upstream := newSearchStub(t, &upstreamCalls)
	defer upstream.Close()

	env := newLoggingTestEnv(t, upstream.URL, upstream.Client())

	getBody(t, env.app, "http://nilch.local/api/search?q=golang")
	getBody(t, env.app, "http://nilch.local/api/search?q=golang")

	env.AssertLogContains(t, `"action":"resolve"`)
	env.AssertLogContains(t, `"cache_hit":false`)
	env.AssertLogContains(t, `"cache_hit":true`)
	env.AssertLogContains(t, `"query":"golang"`)
}

func TestSearchFailureEmitsWarning(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	env := newLoggingTestEnv(t, upstream.URL, upstream.Client())

	body := getBody(t, env.app, "http://nilch.local/api/search?q=golang")
	if body != `"noresults"` {
		t.Fatalf("上游失败应返回 noresults，得到 %s", body)
	}
	env.AssertLogContains(t, `"level":"warning"`)
	env.AssertLogContains(t, `"level":"error"`)
	env.AssertLogContains(t, `"action":"search"`)
}

func TestRequestIDHeaderAssigned(t *testing.T) {
	var upstreamCalls atomic.Int64
	upstream := newSearchStub(t, &upstreamCalls)
	defer upstream.Close()

	env := newLoggingTestEnv(t, upstream.URL, upstream.Client())

	resp, err := env.app.Test(httptest.NewRequest("GET", "http://nilch.local/api/search?q=golang", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)

	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("响应应携带 X-Request-ID")
	}
}
