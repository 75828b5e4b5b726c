// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package models

import "github.com/goccy/go-json"

// Outbound action payloads. Field names follow the server gateway.

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	MessageType    string `json:"messageType,omitempty"`
	ReplyToID      string `json:"replyToId,omitempty"`
	ClientID       string `json:"clientMessageId,omitempty"`
}

type MarkMessageReadRequest struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId,omitempty"`
}

type TypingRequest struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type ConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type JoinMeetingRequest struct {
	MeetingID        string           `json:"meetingId"`
	MediaPreferences MediaPreferences `json:"mediaPreferences"`
}

type MeetingRequest struct {
	MeetingID string `json:"meetingId"`
}

type ToggleMediaRequest struct {
	MeetingID string `json:"meetingId"`
	MediaType string `json:"mediaType"`
	Enabled   bool   `json:"enabled"`
}

type ChatMessageRequest struct {
	MeetingID string `json:"meetingId"`
	Message   string `json:"message"`
}

// MeetingControlRequest starts, ends or records a meeting.
type MeetingControlRequest struct {
	MeetingID string `json:"meetingId"`
	Action    string `json:"action"`
}

type WebRTCSignalRequest struct {
	MeetingID    string          `json:"meetingId"`
	TargetUserID string          `json:"targetUserId"`
	Type         string          `json:"type"`
	Signal       json.RawMessage `json:"signal"`
}

type SubmitWorksheetRequest struct {
	WorksheetID string          `json:"worksheetId"`
	Responses   json.RawMessage `json:"responses,omitempty"`
}

type SaveWorksheetProgressRequest struct {
	WorksheetID string          `json:"worksheetId"`
	Progress    json.RawMessage `json:"progress,omitempty"`
}

type NotificationRequest struct {
	NotificationID string `json:"notificationId"`
}

type UserRequest struct {
	UserID string `json:"userId"`
}
