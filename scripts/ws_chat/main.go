package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gookit/color"

	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "ws://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "display name")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	addr := fmt.Sprintf("%s/rooms/%s?username=%s", *server, url.PathEscape(*room), url.QueryEscape(*user))
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s as %s in room %s\n", *server, *user, *room)
	fmt.Println("Type messages and press Enter to send. /leave leaves the room. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		out, err := proto.DecodeOutbound(data)
		if err != nil {
			log.Printf("decode: %v", err)
			continue
		}

		switch evt := out.(type) {
		case *proto.History:
			notice.Printf("[%s] present: %s\n", evt.RoomID, strings.Join(evt.Members, ", "))
			for _, m := range evt.Messages {
				printMessage(m)
			}
		case *proto.Message:
			printMessage(*evt)
		case *proto.UserJoined:
			notice.Printf("* %s joined (%d present)\n", evt.Name, len(evt.Members))
		case *proto.UserLeft:
			notice.Printf("* %s left (%d present)\n", evt.Name, len(evt.Members))
		case *proto.Error:
			failure.Printf("! %s: %s\n", evt.Code, evt.Message)
		}
	}
}

var (
	notice  = color.New(color.FgGray)
	author  = color.New(color.FgCyan, color.OpBold)
	failure = color.New(color.FgRed)
)

func printMessage(m proto.Message) {
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), author.Render(m.Author), m.Text)
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			inbound := proto.Inbound{Type: proto.InboundTypeLeave}
			if text != "/leave" {
				payload, err := json.Marshal(proto.MessageData{Text: text})
				if err != nil {
					log.Printf("marshal message: %v", err)
					return
				}
				inbound = proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}
			}
			if err := wsjson.Write(ctx, conn, inbound); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
