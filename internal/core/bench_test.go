package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	logger := zerolog.Nop()
	c := NewCoordinator(newFakeGateway("bench"), Options{HistoryLimit: 50, PersistQueue: 1024}, &logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	sender := NewClient("sender", 1024)
	senderSession := c.Connect(sender)
	if _, err := c.Join(ctx, senderSession, "bench", "sender"); err != nil {
		b.Fatalf("join: %v", err)
	}
	go drain(sender)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		cl := NewClient(fmt.Sprintf("c%d", i), 1024)
		if _, err := c.Join(ctx, c.Connect(cl), "bench", fmt.Sprintf("client-%d", i)); err != nil {
			b.Fatalf("join: %v", err)
		}
		clients = append(clients, cl)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, cl := range clients[1:] {
		go drain(cl)
	}
	defer func() {
		for _, cl := range clients {
			cl.Close()
		}
		sender.Close()
	}()
	for len(target.Events()) > 0 {
		<-target.Events()
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := c.Send(senderSession, "payload"); err != nil {
			b.Fatalf("send: %v", err)
		}
		<-target.Events()
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
