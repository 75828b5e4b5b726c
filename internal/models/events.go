// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package models

import (
	"github.com/goccy/go-json"
)

// EventType tags a CanonicalEvent and determines the shape of its payload.
type EventType string

// Messaging events
const (
	EventMessageSent       EventType = "message_sent"
	EventMessageUpdated    EventType = "message_updated"
	EventMessageDeleted    EventType = "message_deleted"
	EventMessageRead       EventType = "message_read"
	EventMessageReaction   EventType = "message_reaction"
	EventTypingStart       EventType = "typing_start"
	EventTypingStop        EventType = "typing_stop"
	EventUserStatusChanged EventType = "user_status_changed"
)

// Notification events
const (
	EventNotificationCreated EventType = "notification_created"
	EventNotificationUpdated EventType = "notification_updated"
	EventNotificationDeleted EventType = "notification_deleted"
	EventNotificationReadAll EventType = "notification_read_all"
)

// Meeting events
const (
	EventMeetingStarted           EventType = "meeting_started"
	EventMeetingEnded             EventType = "meeting_ended"
	EventMeetingParticipantJoined EventType = "meeting_participant_joined"
	EventMeetingParticipantLeft   EventType = "meeting_participant_left"
	EventMeetingMediaChanged      EventType = "meeting_media_changed"
	EventMeetingChatMessage       EventType = "meeting_chat_message"
	EventMeetingSignal            EventType = "meeting_webrtc_signal"
)

// Worksheet events
const (
	EventWorksheetAssigned  EventType = "worksheet_assigned"
	EventWorksheetCompleted EventType = "worksheet_completed"
	EventWorksheetUpdated   EventType = "worksheet_updated"
)

// ChannelHint names the logical channel an event belongs to.
// At most one field is normally set.
type ChannelHint struct {
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	MeetingID      string `json:"meetingId,omitempty"`
}

// IsZero reports whether no hint field is set.
func (h *ChannelHint) IsZero() bool {
	return h == nil || (h.ConversationID == "" && h.UserID == "" && h.MeetingID == "")
}

// CanonicalEvent is the single event shape every handler observes,
// regardless of whether the server pushed it pre-canonicalized or as a
// legacy named frame.
type CanonicalEvent struct {
	Type        EventType       `json:"type"`
	Timestamp   string          `json:"timestamp"`
	ChannelHint *ChannelHint    `json:"channelHint,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`

	// Payload is the decoded, validated form of Data. Its concrete type is
	// fixed by Type (e.g. *Notification for EventNotificationCreated).
	Payload any `json:"-"`

	// Namespace is the namespace of the connection that received the event.
	Namespace string `json:"-"`
}

// ConversationID returns the conversation hint or "".
func (e *CanonicalEvent) ConversationID() string {
	if e.ChannelHint == nil {
		return ""
	}
	return e.ChannelHint.ConversationID
}

// UserID returns the user hint or "".
func (e *CanonicalEvent) UserID() string {
	if e.ChannelHint == nil {
		return ""
	}
	return e.ChannelHint.UserID
}

// MeetingID returns the meeting hint or "".
func (e *CanonicalEvent) MeetingID() string {
	if e.ChannelHint == nil {
		return ""
	}
	return e.ChannelHint.MeetingID
}
