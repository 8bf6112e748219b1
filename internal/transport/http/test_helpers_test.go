package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
	"github.com/vovakirdan/roomchat-server/internal/ticket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	ts      *httptest.Server
	coord   *core.Coordinator
	tickets *ticket.Issuer
}

// startTestServer runs the full HTTP surface over an in-memory SQLite store
// seeded with the general room.
func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.PingInterval = 0
	cfg.WriteTimeout = time.Second
	for _, fn := range mutate {
		fn(&cfg)
	}

	logger := zerolog.Nop()
	coord := core.NewCoordinator(st, core.Options{
		HistoryLimit: cfg.HistoryLimit,
		PersistQueue: cfg.PersistQueue,
	}, &logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = coord.Run(ctx) }()

	tickets := ticket.NewIssuer("test-secret", time.Minute)
	server := NewServer(coord, st, tickets, nil, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, coord: coord, tickets: tickets}
}

func (e *testEnv) wsURL(path string) string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + path
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, e.wsURL(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	in := proto.Inbound{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		in.Data = raw
	}
	require.NoError(t, wsjson.Write(ctx, conn, in))
}

// readNext decodes the next server payload.
func readNext(t *testing.T, ctx context.Context, conn *websocket.Conn) any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	v, err := proto.DecodeOutbound(data)
	require.NoError(t, err)
	return v
}

// readUntil skips payloads until one of type T arrives.
func readUntil[T any](t *testing.T, ctx context.Context, conn *websocket.Conn) *T {
	t.Helper()
	for {
		if v, ok := readNext(t, ctx, conn).(*T); ok {
			return v
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
