// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package cache

// Key builders. Every reader and writer of the cache must go through these
// so that invalidation prefixes line up.

const (
	PrefixNotifications = "notifications:"
	PrefixMessages      = "messages:"
	PrefixConversations = "conversations:"
	PrefixMeetings      = "meetings:"
	PrefixWorksheets    = "worksheets:"
)

// NotificationsList holds []models.Notification, newest first.
func NotificationsList() string { return PrefixNotifications + "list" }

// NotificationsUnreadCount holds an int.
func NotificationsUnreadCount() string { return PrefixNotifications + "unread-count" }

// ConversationMessages holds []models.Message for one conversation, newest first.
func ConversationMessages(conversationID string) string {
	return PrefixMessages + "conversation:" + conversationID
}

// ConversationsList holds the conversation summaries; only ever invalidated here.
func ConversationsList() string { return PrefixConversations + "list" }

// MeetingsList holds []models.Meeting.
func MeetingsList() string { return PrefixMeetings + "list" }

// MeetingParticipants holds []models.MeetingParticipant for one meeting.
func MeetingParticipants(meetingID string) string {
	return PrefixMeetings + "participants:" + meetingID
}

// WorksheetsList holds []models.Worksheet, newest first.
func WorksheetsList() string { return PrefixWorksheets + "list" }

// WorksheetsPendingCount holds an int of worksheets not yet completed.
func WorksheetsPendingCount() string { return PrefixWorksheets + "pending-count" }
