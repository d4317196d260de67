package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/app"
	"github.com/you/identitysvc/internal/infrastructure/database"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/logging"
	testconfig "github.com/you/identitysvc/internal/tests/config"
)

// TestServer runs the full container behind an httptest server.
// Postgres is replaced by in-memory sqlite and Redis by miniredis.
type TestServer struct {
	t         *testing.T
	Server    *httptest.Server
	Container *app.Container
	Redis     *miniredis.Miniredis
	Outbox    *Outbox
	Client    *http.Client
}

// NewTestServer builds and starts a test server; it is stopped on cleanup
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenDialector(sqlite.Open(":memory:"), false, database.PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	outbox := NewOutbox()
	senders := map[domain.Channel]notifications.Sender{
		domain.ChannelEmail: outbox,
		domain.ChannelSMS:   outbox,
	}

	container := app.NewContainerWith(testconfig.LoadTestConfig(t), db, database.NewRedis(mr.Addr(), "", 0), senders, logging.Discard())
	server := httptest.NewServer(container.Router())

	ts := &TestServer{
		t:         t,
		Server:    server,
		Container: container,
		Redis:     mr,
		Outbox:    outbox,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
	t.Cleanup(func() {
		server.Close()
		_ = container.Close()
	})
	return ts
}

// URL returns the absolute URL for path
func (s *TestServer) URL(path string) string {
	return s.Server.URL + path
}

// Response is a decoded JSON reply
type Response struct {
	Status int
	Body   map[string]interface{}
}

// Data returns the "data" envelope of a success reply
func (r Response) Data() map[string]interface{} {
	d, _ := r.Body["data"].(map[string]interface{})
	return d
}

// Reason returns the error reason of a failure reply
func (r Response) Reason() string {
	e, _ := r.Body["error"].(map[string]interface{})
	reason, _ := e["reason"].(string)
	return reason
}

// Do sends a JSON request, with a bearer credential when token is set
func (s *TestServer) Do(method, path string, body interface{}, token string) Response {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL(path), &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	out := Response{Status: resp.StatusCode}
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out.Body))
	return out
}

// Post is Do for POST requests
func (s *TestServer) Post(path string, body interface{}, token string) Response {
	s.t.Helper()
	return s.Do(http.MethodPost, path, body, token)
}

// DrainNotifications delivers every queued notification to the outbox
func (s *TestServer) DrainNotifications() {
	s.t.Helper()
	for {
		processed, err := s.Container.Worker.ProcessOne(context.Background())
		require.NoError(s.t, err)
		if !processed {
			return
		}
	}
}

var (
	codePattern  = regexp.MustCompile(`code is (\d+)`)
	tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
)

// LastCode delivers pending notifications and returns the newest code sent to destination
func (s *TestServer) LastCode(destination string) string {
	s.t.Helper()
	s.DrainNotifications()
	match := codePattern.FindStringSubmatch(s.Outbox.Last(s.t, destination).Body)
	require.Len(s.t, match, 2, "no code in message to %s", destination)
	return match[1]
}

// LastResetToken delivers pending notifications and returns the newest reset token sent to destination
func (s *TestServer) LastResetToken(destination string) string {
	s.t.Helper()
	s.DrainNotifications()
	match := tokenPattern.FindStringSubmatch(s.Outbox.Last(s.t, destination).Body)
	require.Len(s.t, match, 2, "no reset link in message to %s", destination)
	return match[1]
}
