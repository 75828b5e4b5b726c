// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"sort"
	"sync"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
)

// frameSender writes a frame on the current socket and reports the socket
// generation used. ok is false when no socket is open.
type frameSender interface {
	sendFrame(msg models.WireMessage) (gen uint64, ok bool)
}

type subscription struct {
	refCount int
	// sentGen is the socket generation the subscribe frame was last sent
	// on. Zero means not sent on any socket.
	sentGen uint64
}

// Subscriptions tracks channel interest for one connection with reference
// counting. Wire frames are emitted only on 0->1 and 1->0 transitions.
type Subscriptions struct {
	mu        sync.Mutex
	namespace string
	userID    string
	sender    frameSender
	channels  map[string]*subscription
}

func newSubscriptions(namespace, userID string, sender frameSender) *Subscriptions {
	return &Subscriptions{
		namespace: namespace,
		userID:    userID,
		sender:    sender,
		channels:  make(map[string]*subscription),
	}
}

// Subscribe increments the reference count for channel. The first
// subscriber causes a subscribe frame if the connection is open; otherwise
// the frame goes out when the connection opens.
func (s *Subscriptions) Subscribe(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.channels[channel]
	if ok {
		sub.refCount++
		return
	}

	sub = &subscription{refCount: 1}
	s.channels[channel] = sub
	metrics.SetActiveSubscriptions(s.namespace, len(s.channels))

	if gen, sent := s.sender.sendFrame(s.frame(models.TypeSubscribe, channel)); sent {
		sub.sentGen = gen
	}
}

// Unsubscribe decrements the reference count. The last unsubscribe removes
// the channel and emits an unsubscribe frame. Unknown channels are ignored.
func (s *Subscriptions) Unsubscribe(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.channels[channel]
	if !ok {
		return
	}
	sub.refCount--
	if sub.refCount > 0 {
		return
	}

	delete(s.channels, channel)
	metrics.SetActiveSubscriptions(s.namespace, len(s.channels))
	s.sender.sendFrame(s.frame(models.TypeUnsubscribe, channel))
}

// RefCount returns the live count for channel, zero if absent.
func (s *Subscriptions) RefCount(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.channels[channel]; ok {
		return sub.refCount
	}
	return 0
}

// Channels returns every channel with a positive count, sorted.
func (s *Subscriptions) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// resubscribe issues subscribe for every live channel not yet sent on
// socket generation gen. The server forgets subscriptions across sockets.
func (s *Subscriptions) resubscribe(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := make([]string, 0, len(s.channels))
	for ch, sub := range s.channels {
		if sub.sentGen != gen {
			channels = append(channels, ch)
		}
	}
	sort.Strings(channels)

	for _, ch := range channels {
		sent, ok := s.sender.sendFrame(s.frame(models.TypeSubscribe, ch))
		if !ok {
			// Socket went away mid-way; the next open retries the rest.
			return
		}
		s.channels[ch].sentGen = sent
	}
	if len(channels) > 0 {
		logging.Debug().Str("namespace", logging.DisplayNamespace(s.namespace)).
			Int("channels", len(channels)).Msg("Resubscribed channels")
	}
}

func (s *Subscriptions) frame(frameType, channel string) models.WireMessage {
	msg, _ := models.NewWireMessage(frameType, models.SubscriptionPayload{
		Channel: channel,
		UserID:  s.userID,
	})
	return msg
}
