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

func worksheetKey(w *models.Worksheet) string { return w.ID }

func pendingDelta(before, after *models.Worksheet) int {
	switch {
	case !before.Completed() && after.Completed():
		return -1
	case before.Completed() && !after.Completed():
		return 1
	}
	return 0
}

func (r *Reconciler) worksheetAssigned(ev *models.CanonicalEvent) (string, error) {
	w, err := payloadAs[models.Worksheet](ev)
	if err != nil {
		return "", err
	}
	listKey, countKey := cache.WorksheetsList(), cache.WorksheetsPendingCount()

	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Worksheet](tx, listKey)
		if indexOf(list, w.ID, worksheetKey) >= 0 {
			return OutcomeNoop, nil
		}
		if err := tx.Set(listKey, prepend(list, *w)); err != nil {
			return "", err
		}
		if !w.Completed() {
			if err := tx.Set(countKey, counter(tx, countKey)+1); err != nil {
				return "", err
			}
		}
		return OutcomeApplied, nil
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	msg := "A new worksheet has been assigned to you"
	if w.Title != "" {
		msg = w.Title + " has been assigned to you"
	}
	r.toast(ev, w.TherapistID, Toast{
		Kind:     ToastInfo,
		Title:    "New Worksheet Assigned",
		Message:  msg,
		Duration: 5 * time.Second,
	})
	return outcome, nil
}

func (r *Reconciler) worksheetCompleted(ev *models.CanonicalEvent) (string, error) {
	w, err := payloadAs[models.Worksheet](ev)
	if err != nil {
		return "", err
	}
	done := *w
	if !done.Completed() {
		done.Status = models.WorksheetCompleted
	}

	outcome, err := r.replaceWorksheet(&done)
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	msg := "A worksheet has been completed"
	if w.Title != "" {
		msg = w.Title + " has been completed"
	}
	r.toast(ev, w.ClientID, Toast{
		Kind:     ToastSuccess,
		Title:    "Worksheet Completed",
		Message:  msg,
		Duration: 5 * time.Second,
	})
	return outcome, nil
}

func (r *Reconciler) worksheetUpdated(ev *models.CanonicalEvent) (string, error) {
	w, err := payloadAs[models.Worksheet](ev)
	if err != nil {
		return "", err
	}
	return r.replaceWorksheet(w)
}

// replaceWorksheet swaps in w by id and moves the pending counter when the
// completion state changes.
func (r *Reconciler) replaceWorksheet(w *models.Worksheet) (string, error) {
	listKey, countKey := cache.WorksheetsList(), cache.WorksheetsPendingCount()

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Worksheet](tx, listKey)
		i := indexOf(list, w.ID, worksheetKey)
		if i < 0 {
			return OutcomeDropped, nil
		}
		if list[i] == *w {
			return OutcomeNoop, nil
		}
		if err := tx.Set(listKey, replaceAt(list, i, *w)); err != nil {
			return "", err
		}
		if d := pendingDelta(&list[i], w); d != 0 {
			if err := tx.Set(countKey, floorZero(counter(tx, countKey)+d)); err != nil {
				return "", err
			}
		}
		return OutcomeApplied, nil
	})
}
