// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/telesync/internal/models"
)

// MessagesOptions configures a Messages adapter.
type MessagesOptions struct {
	Namespace      string
	ConversationID string

	// TypingAutoStop sends typing_stop this long after the last StartTyping.
	// Zero disables it.
	TypingAutoStop time.Duration

	// TypingRateLimit is the minimum gap between typing_start frames while
	// the user keeps typing. Zero sends one per call.
	TypingRateLimit time.Duration
}

// Messages is the chat adapter for one conversation.
type Messages struct {
	scope
	opts MessagesOptions

	typingMu  sync.Mutex
	typing    bool
	limiter   *rate.Limiter
	autoStop  *time.Timer
	typingGen uint64
}

// NewMessages creates a closed Messages adapter.
func NewMessages(hub Acquirer, opts MessagesOptions) *Messages {
	limit := rate.Inf
	if opts.TypingRateLimit > 0 {
		limit = rate.Every(opts.TypingRateLimit)
	}
	m := &Messages{
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
	m.bind(hub, opts.Namespace, "messages")
	return m
}

// ConversationID returns the conversation this adapter is scoped to.
func (m *Messages) ConversationID() string { return m.opts.ConversationID }

// Open subscribes to the conversation channel and joins the conversation
// room.
func (m *Messages) Open(ctx context.Context) error {
	var channels []string
	if m.opts.ConversationID != "" {
		channels = append(channels, ConversationChannel(m.opts.ConversationID))
	}
	sess, opened, err := m.open(ctx, channels...)
	if err != nil || !opened {
		return err
	}
	if m.opts.ConversationID != "" {
		sess.SendMessage(models.ActionJoinConversation, models.ConversationRequest{ConversationID: m.opts.ConversationID})
	}
	return nil
}

// Close stops any active typing indicator, leaves the conversation and
// releases the subscription.
func (m *Messages) Close() {
	if m.current() == nil {
		return
	}
	m.StopTyping()
	if m.opts.ConversationID != "" {
		m.send(models.ActionLeaveConversation, models.ConversationRequest{ConversationID: m.opts.ConversationID})
	}
	m.close()
}

// Send posts a chat message to the conversation.
func (m *Messages) Send(content, messageType, replyToID string) bool {
	return m.send(models.ActionSendMessage, models.SendMessageRequest{
		ConversationID: m.opts.ConversationID,
		Content:        content,
		MessageType:    messageType,
		ReplyToID:      replyToID,
		ClientID:       uuid.NewString(),
	})
}

// MarkRead acknowledges a message.
func (m *Messages) MarkRead(messageID string) bool {
	return m.send(models.ActionMarkMessageRead, models.MarkMessageReadRequest{
		MessageID:      messageID,
		ConversationID: m.opts.ConversationID,
	})
}

// StartTyping announces that the user is typing. The first call sends
// typing_start; further calls while typing re-send it at most once per
// TypingRateLimit so receivers do not expire the indicator. Each call
// pushes the auto-stop deadline back.
func (m *Messages) StartTyping() bool {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()

	send := !m.typing
	allowed := m.limiter.Allow()
	if m.typing && allowed {
		send = true
	}

	m.typing = true
	m.armAutoStopLocked()

	if !send {
		return m.IsConnected()
	}
	return m.send(models.ActionTypingStart, models.TypingRequest{
		ConversationID: m.opts.ConversationID,
		IsTyping:       true,
	})
}

// StopTyping sends typing_stop if a typing indicator is active.
func (m *Messages) StopTyping() bool {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()
	return m.stopTypingLocked()
}

// IsTyping reports whether the local typing indicator is active.
func (m *Messages) IsTyping() bool {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()
	return m.typing
}

func (m *Messages) stopTypingLocked() bool {
	if !m.typing {
		return false
	}
	m.typing = false
	m.typingGen++
	if m.autoStop != nil {
		m.autoStop.Stop()
		m.autoStop = nil
	}
	return m.send(models.ActionTypingStop, models.TypingRequest{
		ConversationID: m.opts.ConversationID,
		IsTyping:       false,
	})
}

// armAutoStopLocked restarts the auto-stop timer. A timer that fires after
// being superseded is ignored.
func (m *Messages) armAutoStopLocked() {
	if m.opts.TypingAutoStop <= 0 {
		return
	}
	if m.autoStop != nil {
		m.autoStop.Stop()
	}
	m.typingGen++
	gen := m.typingGen
	m.autoStop = time.AfterFunc(m.opts.TypingAutoStop, func() {
		m.typingMu.Lock()
		defer m.typingMu.Unlock()
		if gen != m.typingGen {
			return
		}
		m.stopTypingLocked()
	})
}
