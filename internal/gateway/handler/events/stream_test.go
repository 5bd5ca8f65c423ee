package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdiag/internal/orchestrator"
)

type sessionMap map[string]*orchestrator.Session

func (m sessionMap) Get(id string) (*orchestrator.Session, error) {
	s, ok := m[id]
	if !ok {
		return nil, orchestrator.ErrSessionNotFound
	}
	return s, nil
}

func serve(t *testing.T, allowed []string) string {
	t.Helper()
	sess := orchestrator.NewSession("s1", nil, nil, nil)
	srv := httptest.NewServer(NewHandler(sessionMap{"s1": sess}, allowed, nil))
	t.Cleanup(func() {
		srv.Close()
		sess.Close()
	})
	return srv.URL
}

func dial(t *testing.T, base, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/events?session_id=s1", header)
	if resp != nil && resp.Body != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", allowed: []string{"https://app.example"}, want: true},
		{name: "listed origin", allowed: []string{"https://app.example"}, origin: "https://app.example", want: true},
		{name: "unlisted origin", allowed: []string{"https://app.example"}, origin: "https://evil.example", want: false},
		{name: "same host without list", origin: "http://gateway.local:8080", want: true},
		{name: "other host without list", origin: "https://evil.example", want: false},
		{name: "unparsable origin", origin: "http://%zz", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://gateway.local:8080/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.allowed)(r))
		})
	}
}

func TestUpgradeRejectsForeignOrigin(t *testing.T) {
	base := serve(t, []string{"https://app.example"})

	_, resp, err := dial(t, base, "https://evil.example")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, base, "https://app.example")
	require.NoError(t, err)
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, "subscribed", m.Type)
}

func TestUpgradeAllowsSameHostByDefault(t *testing.T) {
	base := serve(t, nil)

	conn, _, err := dial(t, base, base)
	require.NoError(t, err)
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, "subscribed", m.Type)

	_, resp, err := dial(t, base, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMissingSessionID(t *testing.T) {
	base := serve(t, nil)
	res, err := http.Get(base + "/events")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
