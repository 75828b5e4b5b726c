// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

// Defaults for Options.
const (
	DefaultTypingTTL     = 5 * time.Second
	DefaultSweepInterval = time.Second
)

// Options configures a Tracker.
type Options struct {
	// UserID is the current user; their own typing echoes are ignored.
	UserID string

	// TypingTTL is how long a typing indicator survives without a stop.
	TypingTTL time.Duration

	// SweepInterval is the cadence of Serve's expiry sweep.
	SweepInterval time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Indicator is one user typing in one conversation.
type Indicator struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName,omitempty"`
	Since          time.Time `json:"since"`
}

// Registrar is the part of the dispatcher the tracker attaches to.
type Registrar interface {
	RegisterHandler(eventType models.EventType, h realtime.Handler) func()
}

// Tracker holds ephemeral typing and online state outside the query cache.
//
// Typing indicators move Absent -> Typing on typing_start and back on
// typing_stop or when a sweep finds them older than TypingTTL. Sweep is the
// only place indicators expire. Online state changes only on explicit status
// events.
type Tracker struct {
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	typing map[string]map[string]Indicator // conversationID -> userID
	online map[string]bool
}

// NewTracker creates a Tracker.
func NewTracker(opts Options) *Tracker {
	if opts.TypingTTL <= 0 {
		opts.TypingTTL = DefaultTypingTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		opts:   opts,
		log:    logging.WithComponent("presence"),
		typing: make(map[string]map[string]Indicator),
		online: make(map[string]bool),
	}
}

// Attach registers the tracker's handlers and returns a function that
// removes them.
func (t *Tracker) Attach(reg Registrar) func() {
	offs := []func(){
		reg.RegisterHandler(models.EventTypingStart, t.handleTyping),
		reg.RegisterHandler(models.EventTypingStop, t.handleTyping),
		reg.RegisterHandler(models.EventUserStatusChanged, t.handleStatus),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (t *Tracker) handleTyping(_ context.Context, ev *models.CanonicalEvent) error {
	st, ok := ev.Payload.(*models.TypingStatus)
	if !ok {
		return fmt.Errorf("typing event carries %T", ev.Payload)
	}
	if ev.Type == models.EventTypingStart && st.IsTyping {
		t.HandleTypingStart(st)
	} else {
		t.HandleTypingStop(st)
	}
	return nil
}

func (t *Tracker) handleStatus(_ context.Context, ev *models.CanonicalEvent) error {
	p, ok := ev.Payload.(*models.PresenceStatus)
	if !ok {
		return fmt.Errorf("status event carries %T", ev.Payload)
	}
	t.HandleStatus(p)
	return nil
}

// HandleTypingStart marks the user as typing, refreshing the timestamp of
// an existing indicator.
func (t *Tracker) HandleTypingStart(st *models.TypingStatus) {
	if st.UserID == "" || st.UserID == t.opts.UserID {
		return
	}
	t.mu.Lock()
	users := t.typing[st.ConversationID]
	if users == nil {
		users = make(map[string]Indicator)
		t.typing[st.ConversationID] = users
	}
	users[st.UserID] = Indicator{
		ConversationID: st.ConversationID,
		UserID:         st.UserID,
		UserName:       st.UserName,
		Since:          t.opts.Now(),
	}
	t.mu.Unlock()
	t.publish()
}

// HandleTypingStop clears the indicator. Stopping an absent indicator is a
// no-op.
func (t *Tracker) HandleTypingStop(st *models.TypingStatus) {
	t.mu.Lock()
	t.removeLocked(st.ConversationID, st.UserID)
	t.mu.Unlock()
	t.publish()
}

// HandleStatus records an online or offline transition.
func (t *Tracker) HandleStatus(p *models.PresenceStatus) {
	t.mu.Lock()
	if p.Online() {
		t.online[p.UserID] = true
	} else {
		delete(t.online, p.UserID)
	}
	t.mu.Unlock()
	t.publish()
}

// removeLocked must be called with mu held.
func (t *Tracker) removeLocked(conversationID, userID string) {
	users, ok := t.typing[conversationID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.typing, conversationID)
	}
}

// Sweep removes indicators older than TypingTTL at now and returns how many
// expired. An indicator exactly TypingTTL old survives.
func (t *Tracker) Sweep(now time.Time) int {
	expired := 0
	t.mu.Lock()
	for conv, users := range t.typing {
		for user, ind := range users {
			if now.Sub(ind.Since) > t.opts.TypingTTL {
				delete(users, user)
				expired++
			}
		}
		if len(users) == 0 {
			delete(t.typing, conv)
		}
	}
	t.mu.Unlock()

	if expired > 0 {
		metrics.RecordTypingExpired(expired)
		t.log.Debug().Int("expired", expired).Msg("Typing indicators expired")
		t.publish()
	}
	return expired
}

// Serve sweeps on SweepInterval until ctx is done. It satisfies
// suture.Service.
func (t *Tracker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Sweep(t.opts.Now())
		}
	}
}

// String names the service in supervisor logs.
func (t *Tracker) String() string { return "presence-sweeper" }

// GetTypingUsersForConversation returns who is typing in a conversation,
// ordered by user id.
func (t *Tracker) GetTypingUsersForConversation(conversationID string) []Indicator {
	t.mu.RLock()
	users := t.typing[conversationID]
	out := make([]Indicator, 0, len(users))
	for _, ind := range users {
		out = append(out, ind)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// IsTyping reports whether userID is typing in conversationID.
func (t *Tracker) IsTyping(conversationID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.typing[conversationID][userID]
	return ok
}

// IsOnline reports whether the last status event for userID was online.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[userID]
}

// OnlineUsers returns the online set, sorted.
func (t *Tracker) OnlineUsers() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (t *Tracker) publish() {
	t.mu.RLock()
	typing := 0
	for _, users := range t.typing {
		typing += len(users)
	}
	online := len(t.online)
	t.mu.RUnlock()
	metrics.SetPresence(typing, online)
}
