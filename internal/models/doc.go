// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package models defines the data structures exchanged over the real-time
channel and the domain entities the cache reconciler keeps in sync.

Key Components:

  - WireMessage: the JSON envelope used in both directions
  - CanonicalEvent: the normalized event every handler observes
  - ChannelHint: routing hint (conversation, user or meeting) on an event
  - ConnectionState: lifecycle state of one physical connection
  - Domain payloads: Message, Notification, Meeting, Worksheet, TypingStatus,
    PresenceStatus and the meeting signaling frames

Payload structs carry `validate` tags consumed by the dispatcher's runtime
validator. A frame whose payload fails validation is logged and dropped
before reaching any handler.

Wire Format:

	{"type":"message_sent","data":{...},"timestamp":"2026-01-02T15:04:05.000Z","id":"..."}

Canonical server pushes wrap a CanonicalEvent:

	{"type":"real_time_event","data":{"type":"notification_created","timestamp":"...","userId":"u1","data":{...}}}
*/
package models
