package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to join with")
	room := flag.String("room", "general", "room id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.JoinData{Room: *room, Name: *user}); err != nil {
		return err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		out, err := proto.DecodeOutbound(data)
		if err != nil {
			return err
		}

		switch evt := out.(type) {
		case *proto.History:
			fmt.Printf("History: room=%s members=%v messages=%d\n", evt.RoomID, evt.Members, len(evt.Messages))
			if err := send(proto.InboundTypeMessage, proto.MessageData{Text: *text}); err != nil {
				return err
			}
		case *proto.Message:
			fmt.Printf("Message: room=%s author=%s text=%q seq=%d\n", evt.RoomID, evt.Author, evt.Text, evt.Seq)
			if evt.Author == *user && evt.Text == *text {
				return nil
			}
		case *proto.UserJoined:
			fmt.Printf("Join: name=%s members=%v\n", evt.Name, evt.Members)
		case *proto.UserLeft:
			fmt.Printf("Left: name=%s members=%v\n", evt.Name, evt.Members)
		case *proto.Error:
			return fmt.Errorf("server error %s: %s", evt.Code, evt.Message)
		}
	}
}
