// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"reflect"
	"time"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/models"
)

func messageKey(m *models.Message) string { return m.ID }

func messageConversation(ev *models.CanonicalEvent, fromPayload string) string {
	if fromPayload != "" {
		return fromPayload
	}
	return ev.ConversationID()
}

func (r *Reconciler) messageSent(ev *models.CanonicalEvent) (string, error) {
	msg, err := payloadAs[models.Message](ev)
	if err != nil {
		return "", err
	}
	key := cache.ConversationMessages(msg.ConversationID)

	outcome, err := r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Message](tx, key)
		if indexOf(list, msg.ID, messageKey) >= 0 {
			return OutcomeNoop, nil
		}
		return OutcomeApplied, tx.Set(key, prepend(list, *msg))
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	// Last-message previews live on the conversation list.
	r.store.Invalidate(cache.ConversationsList())

	title := "New message"
	if msg.SenderName != "" {
		title = "New message from " + msg.SenderName
	}
	r.toast(ev, msg.SenderID, Toast{
		Kind:     ToastInfo,
		Title:    title,
		Message:  msg.Content,
		Duration: 5 * time.Second,
	})
	return outcome, nil
}

func (r *Reconciler) messageUpdated(ev *models.CanonicalEvent) (string, error) {
	msg, err := payloadAs[models.Message](ev)
	if err != nil {
		return "", err
	}
	key := cache.ConversationMessages(msg.ConversationID)

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Message](tx, key)
		i := indexOf(list, msg.ID, messageKey)
		if i < 0 {
			return OutcomeDropped, nil
		}
		if reflect.DeepEqual(list[i], *msg) {
			return OutcomeNoop, nil
		}
		return OutcomeApplied, tx.Set(key, replaceAt(list, i, *msg))
	})
}

func (r *Reconciler) messageDeleted(ev *models.CanonicalEvent) (string, error) {
	ref, err := payloadAs[models.MessageRef](ev)
	if err != nil {
		return "", err
	}
	conv := messageConversation(ev, ref.ConversationID)
	if conv == "" {
		return OutcomeDropped, nil
	}
	key := cache.ConversationMessages(conv)

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Message](tx, key)
		i := indexOf(list, ref.Key(), messageKey)
		if i < 0 {
			return OutcomeNoop, nil
		}
		return OutcomeApplied, tx.Set(key, removeAt(list, i))
	})
}

func (r *Reconciler) messageRead(ev *models.CanonicalEvent) (string, error) {
	rc, err := payloadAs[models.MessageReceipt](ev)
	if err != nil {
		return "", err
	}
	conv := messageConversation(ev, rc.ConversationID)
	if conv == "" {
		return OutcomeDropped, nil
	}
	key := cache.ConversationMessages(conv)

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Message](tx, key)
		i := indexOf(list, rc.MessageID, messageKey)
		if i < 0 {
			return OutcomeDropped, nil
		}
		if list[i].IsRead {
			return OutcomeNoop, nil
		}
		updated := list[i]
		updated.IsRead = true
		return OutcomeApplied, tx.Set(key, replaceAt(list, i, updated))
	})
}

func (r *Reconciler) messageReaction(ev *models.CanonicalEvent) (string, error) {
	re, err := payloadAs[models.MessageReaction](ev)
	if err != nil {
		return "", err
	}
	conv := messageConversation(ev, re.ConversationID)
	if conv == "" {
		return OutcomeDropped, nil
	}
	key := cache.ConversationMessages(conv)

	return r.batch(func(tx *cache.Tx) (string, error) {
		list, _ := cache.GetAs[[]models.Message](tx, key)
		i := indexOf(list, re.MessageID, messageKey)
		if i < 0 {
			return OutcomeDropped, nil
		}

		reactions := list[i].Reactions
		at := -1
		for j, existing := range reactions {
			if existing.UserID == re.UserID && existing.Emoji == re.Emoji {
				at = j
				break
			}
		}

		var next []models.Reaction
		switch {
		case re.Removed() && at < 0, !re.Removed() && at >= 0:
			return OutcomeNoop, nil
		case re.Removed():
			next = removeAt(reactions, at)
		default:
			next = append(append([]models.Reaction(nil), reactions...), models.Reaction{UserID: re.UserID, Emoji: re.Emoji})
		}

		updated := list[i]
		updated.Reactions = next
		return OutcomeApplied, tx.Set(key, replaceAt(list, i, updated))
	})
}
