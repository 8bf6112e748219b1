package proto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeOutbound(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payloads := []any{
		History{
			Type:     OutboundTypeHistory,
			RoomID:   "general",
			Messages: []Message{{ID: "m1", RoomID: "general", Author: "alice", Text: "hi", CreatedAt: created, Seq: 1}},
			Members:  []string{"alice", "bob"},
		},
		UserJoined{Type: OutboundTypeUserJoined, Name: "bob", Members: []string{"alice", "bob"}},
		UserLeft{Type: OutboundTypeUserLeft, Name: "bob", Members: []string{"alice"}},
		Message{Type: OutboundTypeMessage, ID: "m2", RoomID: "general", Author: "alice", Text: "yo", CreatedAt: created, Seq: 2},
		Error{Type: OutboundTypeError, Code: "name_taken", Message: "name already taken in this room"},
	}

	for _, want := range payloads {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		got, err := DecodeOutbound(data)
		require.NoError(t, err)

		gotData, err := json.Marshal(got)
		require.NoError(t, err)
		require.JSONEq(t, string(data), string(gotData))
	}
}

func TestDecodeOutboundWireShape(t *testing.T) {
	got, err := DecodeOutbound([]byte(`{"type":"user-left","name":"Bob","members":["Alice"]}`))
	require.NoError(t, err)
	require.Equal(t, &UserLeft{Type: "user-left", Name: "Bob", Members: []string{"Alice"}}, got)
}

func TestDecodeOutboundRejectsUnknownType(t *testing.T) {
	_, err := DecodeOutbound([]byte(`{"type":"typing","name":"bob"}`))
	require.ErrorIs(t, err, ErrUnknownType)

	_, err = DecodeOutbound([]byte(`{`))
	require.Error(t, err)
}
