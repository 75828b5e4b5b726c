// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/telesync/internal/models"
)

// Meeting control actions.
const (
	ControlStart          = "start"
	ControlEnd            = "end"
	ControlStartRecording = "start-recording"
	ControlStopRecording  = "stop-recording"
)

// Meetings is the adapter for one live meeting.
type Meetings struct {
	scope
	meetingID string
	userID    string
}

// NewMeetings creates a closed Meetings adapter. userID is the current
// user; signals addressed to anyone else are not delivered to OnSignal.
func NewMeetings(hub Acquirer, namespace, meetingID, userID string) *Meetings {
	m := &Meetings{meetingID: meetingID, userID: userID}
	m.bind(hub, namespace, "meetings")
	return m
}

// MeetingID returns the meeting this adapter is scoped to.
func (m *Meetings) MeetingID() string { return m.meetingID }

// Open subscribes to the meeting channel. It does not join the call; use
// Join for that.
func (m *Meetings) Open(ctx context.Context) error {
	_, _, err := m.open(ctx, MeetingChannel(m.meetingID))
	return err
}

// Close leaves the call and revokes the subscription and handlers.
func (m *Meetings) Close() {
	if m.current() == nil {
		return
	}
	m.Leave()
	m.close()
}

// Join enters the call with the given media preferences.
func (m *Meetings) Join(prefs models.MediaPreferences) bool {
	return m.send(models.ActionJoinMeeting, models.JoinMeetingRequest{MeetingID: m.meetingID, MediaPreferences: prefs})
}

// Leave exits the call.
func (m *Meetings) Leave() bool {
	return m.send(models.ActionLeaveMeeting, models.MeetingRequest{MeetingID: m.meetingID})
}

// Ready tells peers the local media is set up.
func (m *Meetings) Ready() bool {
	return m.send(models.ActionParticipantReady, models.MeetingRequest{MeetingID: m.meetingID})
}

// ToggleMedia enables or disables a local track.
func (m *Meetings) ToggleMedia(mediaType string, enabled bool) bool {
	return m.send(models.ActionToggleMedia, models.ToggleMediaRequest{MeetingID: m.meetingID, MediaType: mediaType, Enabled: enabled})
}

// Chat posts an in-meeting chat message.
func (m *Meetings) Chat(message string) bool {
	return m.send(models.ActionChatMessage, models.ChatMessageRequest{MeetingID: m.meetingID, Message: message})
}

// Control starts, ends or records the meeting.
func (m *Meetings) Control(action string) bool {
	return m.send(models.ActionMeetingControl, models.MeetingControlRequest{MeetingID: m.meetingID, Action: action})
}

// Signal relays a WebRTC offer, answer or ICE candidate to one peer.
func (m *Meetings) Signal(targetUserID, signalType string, signal json.RawMessage) bool {
	return m.send(models.ActionWebRTCSignal, models.WebRTCSignalRequest{
		MeetingID:    m.meetingID,
		TargetUserID: targetUserID,
		Type:         signalType,
		Signal:       signal,
	})
}

// OnSignal delivers WebRTC signals for this meeting addressed to the
// current user. The handler is removed on Close.
func (m *Meetings) OnSignal(fn func(*models.WebRTCSignal)) (func(), error) {
	sess := m.current()
	if sess == nil {
		return nil, fmt.Errorf("meeting %s: %w", m.meetingID, ErrNotOpen)
	}
	return sess.On(models.EventMeetingSignal, func(_ context.Context, ev *models.CanonicalEvent) error {
		sig, ok := ev.Payload.(*models.WebRTCSignal)
		if !ok || sig.MeetingID != m.meetingID || sig.TargetUserID != m.userID {
			return nil
		}
		fn(sig)
		return nil
	}), nil
}
