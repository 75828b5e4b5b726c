// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/validation"
)

// route maps wire frame types onto one canonical event type and knows how
// to decode, validate and locate the payload.
type route struct {
	wire   []string
	event  models.EventType
	decode func(data json.RawMessage) (payload any, hint models.ChannelHint, err error)
}

// on declares a route whose payload is T. prepare, when non-nil, runs after
// decoding and before validation (e.g. to fill a status implied by the
// wire name). hint locates the payload's channel.
func on[T any](event models.EventType, wire []string, prepare func(*T), hint func(*T) models.ChannelHint) route {
	return route{
		wire:  wire,
		event: event,
		decode: func(data json.RawMessage) (any, models.ChannelHint, error) {
			p := new(T)
			if len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				if err := json.Unmarshal(data, p); err != nil {
					return nil, models.ChannelHint{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, event, err)
				}
			}
			if prepare != nil {
				prepare(p)
			}
			if err := validation.Validate(string(event), p); err != nil {
				return nil, models.ChannelHint{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
			var h models.ChannelHint
			if hint != nil {
				h = hint(p)
			}
			return p, h, nil
		},
	}
}

func wire(names ...string) []string { return names }

// routes is the complete inbound table. The first wire name of each entry
// equals the canonical type; the rest are aliases older servers emit.
var routes = []route{
	// Messaging
	on(models.EventMessageSent, wire("message_sent"), nil,
		func(m *models.Message) models.ChannelHint { return models.ChannelHint{ConversationID: m.ConversationID} }),
	on(models.EventMessageUpdated, wire("message_updated"), nil,
		func(m *models.Message) models.ChannelHint { return models.ChannelHint{ConversationID: m.ConversationID} }),
	on(models.EventMessageDeleted, wire("message_deleted"), nil,
		func(r *models.MessageRef) models.ChannelHint { return models.ChannelHint{ConversationID: r.ConversationID} }),
	on(models.EventMessageRead, wire("message_read"), nil,
		func(r *models.MessageReceipt) models.ChannelHint { return models.ChannelHint{ConversationID: r.ConversationID} }),
	on(models.EventMessageReaction, wire("message_reaction"), nil,
		func(r *models.MessageReaction) models.ChannelHint { return models.ChannelHint{ConversationID: r.ConversationID} }),
	on(models.EventTypingStart, wire("typing_start"),
		func(s *models.TypingStatus) { s.IsTyping = true },
		func(s *models.TypingStatus) models.ChannelHint { return models.ChannelHint{ConversationID: s.ConversationID} }),
	on(models.EventTypingStop, wire("typing_stop"),
		func(s *models.TypingStatus) { s.IsTyping = false },
		func(s *models.TypingStatus) models.ChannelHint { return models.ChannelHint{ConversationID: s.ConversationID} }),
	on(models.EventUserStatusChanged, wire("user_status_changed"), nil, presenceHint),
	on(models.EventUserStatusChanged, wire("user_online"),
		func(p *models.PresenceStatus) { p.Status = "online" }, presenceHint),
	on(models.EventUserStatusChanged, wire("user_offline"),
		func(p *models.PresenceStatus) { p.Status = "offline" }, presenceHint),

	// Notifications
	on(models.EventNotificationCreated, wire("notification_created"), nil, notificationHint),
	on(models.EventNotificationUpdated, wire("notification_updated"), nil, notificationHint),
	on(models.EventNotificationDeleted, wire("notification_deleted"), nil,
		func(r *models.NotificationRef) models.ChannelHint { return models.ChannelHint{UserID: r.UserID} }),
	on(models.EventNotificationReadAll, wire("notification_read_all"), nil,
		func(r *models.NotificationReadAll) models.ChannelHint { return models.ChannelHint{UserID: r.UserID} }),

	// Meetings
	on(models.EventMeetingStarted, wire("meeting_started", "meeting-started"), nil, meetingHint),
	on(models.EventMeetingEnded, wire("meeting_ended", "meeting-ended"), nil, meetingHint),
	on(models.EventMeetingParticipantJoined, wire("meeting_participant_joined", "participant-joined"), nil,
		func(p *models.MeetingParticipant) models.ChannelHint { return models.ChannelHint{MeetingID: p.MeetingID} }),
	on(models.EventMeetingParticipantLeft, wire("meeting_participant_left", "participant-left"), nil,
		func(p *models.MeetingParticipant) models.ChannelHint { return models.ChannelHint{MeetingID: p.MeetingID} }),
	on(models.EventMeetingMediaChanged, wire("meeting_media_changed", "participant-media-changed"), nil,
		func(c *models.MediaChange) models.ChannelHint { return models.ChannelHint{MeetingID: c.MeetingID} }),
	on(models.EventMeetingChatMessage, wire("meeting_chat_message", "chat-message"), nil,
		func(c *models.MeetingChat) models.ChannelHint { return models.ChannelHint{MeetingID: c.MeetingID} }),
	on(models.EventMeetingSignal, wire("meeting_webrtc_signal", "webrtc-signal"), nil,
		func(s *models.WebRTCSignal) models.ChannelHint { return models.ChannelHint{MeetingID: s.MeetingID} }),

	// Worksheets concern both client and therapist, so they carry no user hint.
	on[models.Worksheet](models.EventWorksheetAssigned, wire("worksheet_assigned"), nil, nil),
	on[models.Worksheet](models.EventWorksheetCompleted, wire("worksheet_completed"), nil, nil),
	on[models.Worksheet](models.EventWorksheetUpdated, wire("worksheet_updated"), nil, nil),
}

func presenceHint(p *models.PresenceStatus) models.ChannelHint {
	return models.ChannelHint{UserID: p.UserID}
}

func notificationHint(n *models.Notification) models.ChannelHint {
	return models.ChannelHint{UserID: n.UserID}
}

func meetingHint(m *models.Meeting) models.ChannelHint {
	return models.ChannelHint{MeetingID: m.Key()}
}

// routeTable indexes routes by wire name and by canonical type.
type routeTable struct {
	byWire  map[string]*route
	byEvent map[models.EventType]*route
}

func newRouteTable(rs []route) *routeTable {
	t := &routeTable{
		byWire:  make(map[string]*route),
		byEvent: make(map[models.EventType]*route),
	}
	for i := range rs {
		r := &rs[i]
		for _, w := range r.wire {
			if _, dup := t.byWire[w]; dup {
				panic("realtime: duplicate wire route " + w)
			}
			t.byWire[w] = r
		}
		if _, ok := t.byEvent[r.event]; !ok {
			t.byEvent[r.event] = r
		}
	}
	return t
}

// EventTypes lists every canonical type the dispatcher can produce.
func EventTypes() []models.EventType {
	seen := make(map[models.EventType]bool)
	out := make([]models.EventType, 0, len(routes))
	for i := range routes {
		if !seen[routes[i].event] {
			seen[routes[i].event] = true
			out = append(out, routes[i].event)
		}
	}
	return out
}
