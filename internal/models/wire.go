// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Reserved wire frame types handled by the connection layer itself.
const (
	TypeHeartbeat     = "heartbeat"
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeRealTimeEvent = "real_time_event"
)

// Domain action frame types sent by the adapters.
const (
	ActionSendMessage              = "send_message"
	ActionMarkMessageRead          = "mark_message_read"
	ActionTypingStart              = "typing_start"
	ActionTypingStop               = "typing_stop"
	ActionJoinConversation         = "join_conversation"
	ActionLeaveConversation        = "leave_conversation"
	ActionJoinMeeting              = "join-meeting"
	ActionLeaveMeeting             = "leave-meeting"
	ActionToggleMedia              = "toggle-media"
	ActionChatMessage              = "chat-message"
	ActionMeetingControl           = "meeting-control"
	ActionWebRTCSignal             = "webrtc-signal"
	ActionParticipantReady         = "participant-ready"
	ActionSubmitWorksheet          = "submit_worksheet"
	ActionSaveWorksheetProgress    = "save_worksheet_progress"
	ActionMarkNotificationRead     = "mark_notification_read"
	ActionMarkAllNotificationsRead = "mark_all_notifications_read"
	ActionDeleteNotification       = "delete_notification"
)

// TimestampLayout is the ISO-8601 layout used when stamping outbound frames.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// WireMessage is the envelope for every frame in both directions.
// Data is kept raw so the dispatcher can decode it once the type is known.
type WireMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	ID        string          `json:"id,omitempty"`
}

// NewWireMessage marshals payload into a frame of the given type.
// A nil payload produces an empty object so servers always see `data`.
func NewWireMessage(frameType string, payload any) (WireMessage, error) {
	msg := WireMessage{Type: frameType}
	if payload == nil {
		msg.Data = json.RawMessage(`{}`)
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Data = raw
	return msg, nil
}

// Stamp fills Timestamp with now when it is absent.
func (m *WireMessage) Stamp(now time.Time) {
	if m.Timestamp == "" {
		m.Timestamp = FormatTimestamp(now)
	}
}

// FormatTimestamp renders t in the wire timestamp format (UTC, millisecond precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// HeartbeatPayload is the body of a heartbeat frame in either direction.
type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// SubscriptionPayload is the body of subscribe and unsubscribe frames.
type SubscriptionPayload struct {
	Channel string `json:"channel" validate:"required"`
	UserID  string `json:"userId,omitempty"`
}
