// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/models"
)

func notificationKey(n *models.Notification) string { return n.ID }

func (r *Reconciler) notificationCreated(ev *models.CanonicalEvent) (string, error) {
	n, err := payloadAs[models.Notification](ev)
	if err != nil {
		return "", err
	}
	listKey, countKey := cache.NotificationsList(), cache.NotificationsUnreadCount()

	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Notification](tx, listKey)
		if indexOf(list, n.ID, notificationKey) >= 0 {
			return OutcomeNoop, nil
		}
		if err := tx.Set(listKey, prepend(list, *n)); err != nil {
			return "", err
		}
		if !n.IsRead {
			if err := tx.Set(countKey, counter(tx, countKey)+1); err != nil {
				return "", err
			}
		}
		return OutcomeApplied, nil
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	kind, d := toastForPriority(n.Priority)
	r.toast(ev, "", Toast{
		Kind:      kind,
		Title:     n.Title,
		Message:   n.Message,
		Duration:  d,
		ActionURL: n.ActionURL,
	})
	r.systemNotify(ev, "", SystemNotification{
		Title:              n.Title,
		Body:               n.Message,
		Tag:                n.ID,
		RequireInteraction: n.Priority.Normalized() == models.PriorityUrgent,
	})
	return outcome, nil
}

func (r *Reconciler) notificationUpdated(ev *models.CanonicalEvent) (string, error) {
	n, err := payloadAs[models.Notification](ev)
	if err != nil {
		return "", err
	}
	listKey, countKey := cache.NotificationsList(), cache.NotificationsUnreadCount()

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Notification](tx, listKey)
		i := indexOf(list, n.ID, notificationKey)
		if i < 0 {
			return OutcomeDropped, nil
		}
		if list[i] == *n {
			return OutcomeNoop, nil
		}
		if err := tx.Set(listKey, replaceAt(list, i, *n)); err != nil {
			return "", err
		}

		delta := 0
		switch {
		case !list[i].IsRead && n.IsRead:
			delta = -1
		case list[i].IsRead && !n.IsRead:
			delta = 1
		}
		if delta != 0 {
			if err := tx.Set(countKey, floorZero(counter(tx, countKey)+delta)); err != nil {
				return "", err
			}
		}
		return OutcomeApplied, nil
	})
}

func (r *Reconciler) notificationDeleted(ev *models.CanonicalEvent) (string, error) {
	ref, err := payloadAs[models.NotificationRef](ev)
	if err != nil {
		return "", err
	}
	listKey, countKey := cache.NotificationsList(), cache.NotificationsUnreadCount()

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Notification](tx, listKey)
		i := indexOf(list, ref.ID, notificationKey)
		if i < 0 {
			return OutcomeNoop, nil
		}
		if err := tx.Set(listKey, removeAt(list, i)); err != nil {
			return "", err
		}
		if !list[i].IsRead {
			if err := tx.Set(countKey, floorZero(counter(tx, countKey)-1)); err != nil {
				return "", err
			}
		}
		return OutcomeApplied, nil
	})
}

func (r *Reconciler) notificationReadAll(ev *models.CanonicalEvent) (string, error) {
	ra, err := payloadAs[models.NotificationReadAll](ev)
	if err != nil {
		return "", err
	}
	listKey, countKey := cache.NotificationsList(), cache.NotificationsUnreadCount()

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Notification](tx, listKey)
		unread := false
		for i := range list {
			if !list[i].IsRead {
				unread = true
				break
			}
		}
		_, hasCount := tx.Get(countKey)
		if !unread && (!hasCount || counter(tx, countKey) == 0) {
			return OutcomeNoop, nil
		}

		read := mapAll(list, func(n models.Notification) models.Notification {
			if !n.IsRead {
				n.IsRead = true
				if n.ReadAt == "" {
					n.ReadAt = ra.ReadAt
				}
			}
			return n
		})
		if err := tx.Set(listKey, read); err != nil {
			return "", err
		}
		return OutcomeApplied, tx.Set(countKey, 0)
	})
}
