// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"time"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/models"
)

func meetingKey(m *models.Meeting) string { return m.Key() }

func participantKey(p *models.MeetingParticipant) string { return p.UserID }

// setMeetingStatus moves the cached meeting to status. A meeting that is
// not cached marks the list stale so the next read refetches it; it is
// dropped, not surfaced, so redelivery of the same event stays silent.
func (r *Reconciler) setMeetingStatus(m *models.Meeting, status string) (string, error) {
	key := cache.MeetingsList()
	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Meeting](tx, key)
		i := indexOf(list, m.Key(), meetingKey)
		if i < 0 {
			return OutcomeDropped, nil
		}
		if list[i].Status == status {
			return OutcomeNoop, nil
		}
		updated := list[i]
		updated.Status = status
		if m.StartTime != "" {
			updated.StartTime = m.StartTime
		}
		if m.EndTime != "" {
			updated.EndTime = m.EndTime
		}
		return OutcomeApplied, tx.Set(key, replaceAt(list, i, updated))
	})
	if err == nil && outcome == OutcomeDropped {
		r.store.Invalidate(key)
	}
	return outcome, err
}

func (r *Reconciler) meetingStarted(ev *models.CanonicalEvent) (string, error) {
	m, err := payloadAs[models.Meeting](ev)
	if err != nil {
		return "", err
	}
	outcome, err := r.setMeetingStatus(m, models.MeetingInProgress)
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}
	r.toast(ev, m.StartedBy, Toast{
		Kind:     ToastInfo,
		Title:    "Meeting Started",
		Message:  meetingMessage(m, "has started"),
		Duration: 5 * time.Second,
	})
	return outcome, nil
}

func (r *Reconciler) meetingEnded(ev *models.CanonicalEvent) (string, error) {
	m, err := payloadAs[models.Meeting](ev)
	if err != nil {
		return "", err
	}
	outcome, err := r.setMeetingStatus(m, models.MeetingCompleted)
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}
	r.toast(ev, "", Toast{
		Kind:     ToastInfo,
		Title:    "Meeting Ended",
		Message:  meetingMessage(m, "has ended"),
		Duration: 5 * time.Second,
	})
	return outcome, nil
}

func meetingMessage(m *models.Meeting, verb string) string {
	if m.Title != "" {
		return m.Title + " " + verb
	}
	return "The meeting " + verb
}

func (r *Reconciler) participantJoined(ev *models.CanonicalEvent) (string, error) {
	p, err := payloadAs[models.MeetingParticipant](ev)
	if err != nil {
		return "", err
	}
	key := cache.MeetingParticipants(p.MeetingID)

	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.MeetingParticipant](tx, key)
		if indexOf(list, p.UserID, participantKey) >= 0 {
			return OutcomeNoop, nil
		}
		return OutcomeApplied, tx.Set(key, append(append([]models.MeetingParticipant(nil), list...), *p))
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}
	if p.ParticipantName != "" {
		r.toast(ev, p.UserID, Toast{
			Kind:     ToastInfo,
			Title:    "Participant Joined",
			Message:  p.ParticipantName + " joined the meeting",
			Duration: 3 * time.Second,
		})
	}
	return outcome, nil
}

func (r *Reconciler) participantLeft(ev *models.CanonicalEvent) (string, error) {
	p, err := payloadAs[models.MeetingParticipant](ev)
	if err != nil {
		return "", err
	}
	key := cache.MeetingParticipants(p.MeetingID)

	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.MeetingParticipant](tx, key)
		i := indexOf(list, p.UserID, participantKey)
		if i < 0 {
			return OutcomeNoop, nil
		}
		return OutcomeApplied, tx.Set(key, removeAt(list, i))
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}
	if p.ParticipantName != "" {
		r.toast(ev, p.UserID, Toast{
			Kind:     ToastInfo,
			Title:    "Participant Left",
			Message:  p.ParticipantName + " left the meeting",
			Duration: 3 * time.Second,
		})
	}
	return outcome, nil
}
