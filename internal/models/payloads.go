// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package models

import (
	"strings"

	"github.com/goccy/go-json"
)

// ============================================================================
// Messaging
// ============================================================================

// Message is a chat message inside a conversation.
type Message struct {
	ID             string     `json:"id" validate:"required"`
	ConversationID string     `json:"conversationId" validate:"required"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName,omitempty"`
	Content        string     `json:"content"`
	MessageType    string     `json:"messageType,omitempty"` // TEXT, IMAGE, FILE, SYSTEM
	IsRead         bool       `json:"isRead"`
	IsEdited       bool       `json:"isEdited,omitempty"`
	ReplyToID      string     `json:"replyToId,omitempty"`
	Reactions      []Reaction `json:"reactions,omitempty"`
	CreatedAt      string     `json:"createdAt,omitempty"`
	UpdatedAt      string     `json:"updatedAt,omitempty"`
}

// Reaction is one user's emoji reaction on a message.
type Reaction struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// MessageRef identifies a message for delete events. Servers send either
// `id` or `messageId`.
type MessageRef struct {
	ID             string `json:"id,omitempty" validate:"required_without=MessageID"`
	MessageID      string `json:"messageId,omitempty" validate:"required_without=ID"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Key returns whichever identifier was supplied.
func (r *MessageRef) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.MessageID
}

// MessageReceipt reports that a user has read a message.
type MessageReceipt struct {
	MessageID      string `json:"messageId" validate:"required"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	ReadAt         string `json:"readAt,omitempty"`
}

// MessageReaction adds or removes a reaction.
type MessageReaction struct {
	MessageID      string `json:"messageId" validate:"required"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId" validate:"required"`
	Emoji          string `json:"emoji" validate:"required"`
	Action         string `json:"action,omitempty" validate:"omitempty,oneof=add remove"`
}

// Removed reports whether the reaction should be taken off the message.
func (r *MessageReaction) Removed() bool {
	return r.Action == "remove"
}

// TypingStatus is the payload of typing_start and typing_stop.
type TypingStatus struct {
	ConversationID string `json:"conversationId" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
	UserName       string `json:"userName,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

// PresenceStatus reports a user going online or offline.
type PresenceStatus struct {
	UserID   string `json:"userId" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=online offline away"`
	LastSeen string `json:"lastSeen,omitempty"`
}

// Online reports whether the status counts as present.
func (p *PresenceStatus) Online() bool {
	return p.Status == "online" || p.Status == "away"
}

// ============================================================================
// Notifications
// ============================================================================

// NotificationPriority mirrors the server's priority enum.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityNormal NotificationPriority = "NORMAL"
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityUrgent NotificationPriority = "URGENT"
)

// Normalized upper-cases the priority; the server is not consistent about case.
func (p NotificationPriority) Normalized() NotificationPriority {
	return NotificationPriority(strings.ToUpper(string(p)))
}

// Notification is a user-facing notification.
type Notification struct {
	ID         string               `json:"id" validate:"required"`
	UserID     string               `json:"userId,omitempty"`
	Title      string               `json:"title,omitempty"`
	Message    string               `json:"message,omitempty"`
	Type       string               `json:"type,omitempty"`
	Priority   NotificationPriority `json:"priority,omitempty"`
	IsRead     bool                 `json:"isRead"`
	IsArchived bool                 `json:"isArchived,omitempty"`
	ActionURL  string               `json:"actionUrl,omitempty"`
	CreatedAt  string               `json:"createdAt,omitempty"`
	ReadAt     string               `json:"readAt,omitempty"`
}

// NotificationRef identifies a notification for delete events.
type NotificationRef struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"userId,omitempty"`
}

// NotificationReadAll marks every notification of a user as read.
type NotificationReadAll struct {
	UserID string `json:"userId,omitempty"`
	ReadAt string `json:"readAt,omitempty"`
}

// ============================================================================
// Meetings
// ============================================================================

// Meeting statuses as reported by the server.
const (
	MeetingScheduled  = "SCHEDULED"
	MeetingInProgress = "IN_PROGRESS"
	MeetingCompleted  = "COMPLETED"
	MeetingCancelled  = "CANCELLED"
)

// Meeting is a scheduled therapy session. Start and end pushes carry either
// `id` or `meetingId`.
type Meeting struct {
	ID           string   `json:"id,omitempty" validate:"required_without=MeetingID"`
	MeetingID    string   `json:"meetingId,omitempty" validate:"required_without=ID"`
	Title        string   `json:"title,omitempty"`
	Status       string   `json:"status,omitempty"`
	StartTime    string   `json:"startTime,omitempty"`
	EndTime      string   `json:"endTime,omitempty"`
	TherapistID  string   `json:"therapistId,omitempty"`
	ClientID     string   `json:"clientId,omitempty"`
	StartedBy    string   `json:"startedBy,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// Key returns whichever identifier was supplied.
func (m *Meeting) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.MeetingID
}

// MeetingParticipant is the payload of participant join/leave events.
type MeetingParticipant struct {
	MeetingID       string `json:"meetingId" validate:"required"`
	UserID          string `json:"userId" validate:"required"`
	ParticipantName string `json:"participantName,omitempty"`
	Role            string `json:"role,omitempty"`
}

// MediaPreferences selects which tracks a participant publishes.
type MediaPreferences struct {
	Video bool `json:"video"`
	Audio bool `json:"audio"`
}

// MediaChange is pushed when a participant toggles a track.
type MediaChange struct {
	MeetingID string `json:"meetingId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	MediaType string `json:"mediaType" validate:"required,oneof=video audio screen"`
	Enabled   bool   `json:"enabled"`
}

// MeetingChat is an in-meeting chat line.
type MeetingChat struct {
	MeetingID string `json:"meetingId" validate:"required"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	Message   string `json:"message" validate:"required"`
	Timestamp string `json:"timestamp,omitempty"`
}

// WebRTCSignal relays an SDP offer/answer or ICE candidate between peers.
type WebRTCSignal struct {
	MeetingID    string          `json:"meetingId" validate:"required"`
	FromUserID   string          `json:"fromUserId,omitempty"`
	TargetUserID string          `json:"targetUserId" validate:"required"`
	Type         string          `json:"type" validate:"required,oneof=offer answer ice-candidate"`
	Signal       json.RawMessage `json:"signal"`
}

// ============================================================================
// Worksheets
// ============================================================================

// Worksheet statuses as reported by the server.
const (
	WorksheetAssigned   = "ASSIGNED"
	WorksheetInProgress = "IN_PROGRESS"
	WorksheetCompleted  = "COMPLETED"
	WorksheetOverdue    = "OVERDUE"
)

// Worksheet is a therapy worksheet assigned to a client.
type Worksheet struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	ClientID    string `json:"clientId,omitempty"`
	TherapistID string `json:"therapistId,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	SubmittedAt string `json:"submittedAt,omitempty"`
}

// Completed reports whether the worksheet no longer counts as pending.
func (w *Worksheet) Completed() bool {
	return strings.EqualFold(w.Status, WorksheetCompleted)
}
