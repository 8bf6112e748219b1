package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomURLDeliversHistoryOnConnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(testContext(t), 2*time.Second)
	defer cancel()
	env := startTestServer(t)

	conn := env.dial(t, ctx, "/rooms/general?username=alice")
	v := readNext(t, ctx, conn)
	history, ok := v.(*proto.History)
	require.True(t, ok, "first frame is %T", v)
	require.Equal(t, "general", history.RoomID)
	require.Equal(t, []string{"alice"}, history.Members)
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t)

	connA := env.dial(t, ctx, "/ws")
	connB := env.dial(t, ctx, "/ws")

	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{Room: "general", Name: "alice"})
	history := readUntil[proto.History](t, ctx, connA)
	require.Equal(t, "general", history.RoomID)
	require.Equal(t, []string{"alice"}, history.Members)
	require.Empty(t, history.Messages)

	send(t, ctx, connB, proto.InboundTypeJoin, proto.JoinData{Room: "general", Name: "bob"})
	require.Equal(t, []string{"alice", "bob"}, readUntil[proto.History](t, ctx, connB).Members)

	joined := readUntil[proto.UserJoined](t, ctx, connA)
	require.Equal(t, "bob", joined.Name)
	require.Equal(t, []string{"alice", "bob"}, joined.Members)

	send(t, ctx, connA, proto.InboundTypeMessage, proto.MessageData{Text: "hi there"})
	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readUntil[proto.Message](t, ctx, conn)
		require.Equal(t, "alice", msg.Author)
		require.Equal(t, "hi there", msg.Text)
		require.Equal(t, "general", msg.RoomID)
		require.Equal(t, int64(1), msg.Seq)
		require.NotEmpty(t, msg.ID)
	}
}

func TestWebSocketDisconnectBroadcastsLeave(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t)

	connA := env.dial(t, ctx, "/rooms/general?username=alice")
	readUntil[proto.History](t, ctx, connA)

	connB := env.dial(t, ctx, "/rooms/general?username=bob")
	readUntil[proto.History](t, ctx, connB)
	readUntil[proto.UserJoined](t, ctx, connA)

	require.NoError(t, connB.Close(websocket.StatusNormalClosure, "bye"))

	left := readUntil[proto.UserLeft](t, ctx, connA)
	require.Equal(t, "bob", left.Name)
	require.Equal(t, []string{"alice"}, left.Members)
}

func TestWebSocketRejections(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t)

	conn := env.dial(t, ctx, "/ws")

	send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Text: "too early"})
	require.Equal(t, core.ErrCodeNotJoined, readUntil[proto.Error](t, ctx, conn).Code)

	send(t, ctx, conn, "typing", nil)
	require.Equal(t, core.ErrCodeBadRequest, readUntil[proto.Error](t, ctx, conn).Code)

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: "nowhere", Name: "alice"})
	require.Equal(t, core.ErrCodeRoomNotFound, readUntil[proto.Error](t, ctx, conn).Code)

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: "general", Name: ""})
	require.Equal(t, core.ErrCodeInvalidName, readUntil[proto.Error](t, ctx, conn).Code)

	other := env.dial(t, ctx, "/rooms/general?username=alice")
	readUntil[proto.History](t, ctx, other)

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: "general", Name: "alice"})
	require.Equal(t, core.ErrCodeNameTaken, readUntil[proto.Error](t, ctx, conn).Code)

	// The connection survives every rejection.
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: "general", Name: "alicia"})
	require.Equal(t, []string{"alice", "alicia"}, readUntil[proto.History](t, ctx, conn).Members)
}

func TestWebSocketRateLimit(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t, func(cfg *config.Config) { cfg.MessagesPerMinute = 2 })

	conn := env.dial(t, ctx, "/rooms/general?username=alice")
	readUntil[proto.History](t, ctx, conn)

	for range 3 {
		send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Text: "spam"})
	}
	require.Equal(t, int64(1), readUntil[proto.Message](t, ctx, conn).Seq)
	require.Equal(t, int64(2), readUntil[proto.Message](t, ctx, conn).Seq)
	require.Equal(t, core.ErrCodeRateLimited, readUntil[proto.Error](t, ctx, conn).Code)
}

func TestRoomURLRejectsUnknownRoom(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t)

	conn := env.dial(t, ctx, "/rooms/nowhere?username=alice")
	require.Equal(t, core.ErrCodeRoomNotFound, readUntil[proto.Error](t, ctx, conn).Code)

	_, _, err := conn.Read(ctx)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestRoomURLWithTicket(t *testing.T) {
	ctx := testContext(t)
	env := startTestServer(t)

	tok, err := env.tickets.Issue("general", "carol")
	require.NoError(t, err)

	conn := env.dial(t, ctx, "/rooms/general?ticket="+tok)
	require.Equal(t, []string{"carol"}, readUntil[proto.History](t, ctx, conn).Members)

	_, resp, err := websocket.Dial(ctx, env.wsURL("/rooms/random?ticket="+tok), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, env.wsURL("/rooms/general?ticket=garbage"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, env.wsURL("/rooms/general"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
