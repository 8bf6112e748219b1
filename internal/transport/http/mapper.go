package http

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return core.Command{}, err
		}
		return core.Command{Kind: core.CommandJoinRoom, Room: join.Room, Name: join.Name}, nil
	case proto.InboundTypeMessage:
		var msg proto.MessageData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return core.Command{}, err
		}
		return core.Command{Kind: core.CommandSendRoomMessage, Text: msg.Text}, nil
	case proto.InboundTypeLeave:
		return core.Command{Kind: core.CommandLeaveRoom}, nil
	default:
		return core.Command{}, core.BadRequest(fmt.Sprintf("unknown message type %q", inbound.Type))
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return core.BadRequest("data is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.BadRequest("malformed data")
	}
	return nil
}

func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventHistory:
		return proto.History{
			Type:     proto.OutboundTypeHistory,
			RoomID:   event.Room,
			Messages: toProtoMessages(event.Messages),
			Members:  nonNil(event.Members),
		}
	case core.EventUserJoined:
		return proto.UserJoined{
			Type:    proto.OutboundTypeUserJoined,
			Name:    event.User,
			Members: nonNil(event.Members),
		}
	case core.EventUserLeft:
		return proto.UserLeft{
			Type:    proto.OutboundTypeUserLeft,
			Name:    event.User,
			Members: nonNil(event.Members),
		}
	case core.EventMessage:
		msg := toProtoMessage(event.Message)
		msg.Type = proto.OutboundTypeMessage
		return msg
	case core.EventError:
		if event.Error == nil {
			return proto.Error{Type: proto.OutboundTypeError, Code: "internal", Message: "unknown error"}
		}
		return proto.Error{Type: proto.OutboundTypeError, Code: event.Error.Code, Message: event.Error.Message}
	default:
		return proto.Error{Type: proto.OutboundTypeError, Code: "internal", Message: "unsupported event " + event.Kind.String()}
	}
}

func toProtoMessage(m core.Message) proto.Message {
	return proto.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		Seq:       m.Seq,
	}
}

func toProtoMessages(msgs []core.Message) []proto.Message {
	return lo.Map(msgs, func(m core.Message, _ int) proto.Message { return toProtoMessage(m) })
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
