// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/telesync/internal/models"
)

// fakeSender records frames instead of writing them.
type fakeSender struct {
	mu     sync.Mutex
	online bool
	gen    uint64
	frames []models.WireMessage
}

func (f *fakeSender) sendFrame(msg models.WireMessage) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return 0, false
	}
	f.frames = append(f.frames, msg)
	return f.gen, true
}

func (f *fakeSender) setOnline(online bool, gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
	f.gen = gen
}

// summary renders frames as "subscribe:ch" entries.
func (f *fakeSender) summary(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var p models.SubscriptionPayload
		if err := json.Unmarshal(fr.Data, &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.UserID != "u1" {
			t.Errorf("frame userId = %q, want u1", p.UserID)
		}
		out = append(out, fr.Type+":"+p.Channel)
	}
	return out
}

func newTestSubscriptions() (*Subscriptions, *fakeSender) {
	sender := &fakeSender{online: true, gen: 1}
	return newSubscriptions("/messaging", "u1", sender), sender
}

// Scenario: two subscribes and one unsubscribe emit no unsubscribe frame.
func TestSubscriptions_RefCount(t *testing.T) {
	subs, sender := newTestSubscriptions()

	subs.Subscribe("conversation:42")
	subs.Subscribe("conversation:42")
	subs.Unsubscribe("conversation:42")

	if got := subs.RefCount("conversation:42"); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
	if got := strings.Join(sender.summary(t), ","); got != "subscribe:conversation:42" {
		t.Errorf("frames = %q, want a single subscribe", got)
	}

	subs.Unsubscribe("conversation:42")
	if got := strings.Join(sender.summary(t), ","); got != "subscribe:conversation:42,unsubscribe:conversation:42" {
		t.Errorf("frames = %q, want subscribe then unsubscribe", got)
	}
	if subs.RefCount("conversation:42") != 0 {
		t.Error("entry not removed at zero")
	}
}

func TestSubscriptions_UnsubscribeAbsentIsNoop(t *testing.T) {
	subs, sender := newTestSubscriptions()

	subs.Unsubscribe("conversation:404")
	subs.Subscribe("conversation:1")
	subs.Unsubscribe("conversation:1")
	subs.Unsubscribe("conversation:1")

	if got := len(sender.summary(t)); got != 2 {
		t.Errorf("frames = %d, want 2", got)
	}
	if subs.RefCount("conversation:1") != 0 {
		t.Errorf("RefCount = %d, want 0", subs.RefCount("conversation:1"))
	}
}

// For random interleavings of N subscribes and at most N unsubscribes, an
// unsubscribe frame appears exactly when the live count reaches zero.
func TestSubscriptions_RefCountProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		subs, sender := newTestSubscriptions()
		n := 1 + rng.IntN(8)
		ops := make([]bool, 0, 2*n) // true = subscribe
		unsubs := rng.IntN(n + 1)
		for i := 0; i < n; i++ {
			ops = append(ops, true)
		}
		for i := 0; i < unsubs; i++ {
			ops = append(ops, false)
		}
		rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })

		live := 0
		wantUnsub := 0
		wantSub := 0
		for _, sub := range ops {
			if sub {
				if live == 0 {
					wantSub++
				}
				live++
				subs.Subscribe("conversation:1")
				continue
			}
			if live == 0 {
				subs.Unsubscribe("conversation:1") // absent: no-op
				continue
			}
			live--
			if live == 0 {
				wantUnsub++
			}
			subs.Unsubscribe("conversation:1")
		}

		var gotSub, gotUnsub int
		for _, f := range sender.summary(t) {
			if strings.HasPrefix(f, "unsubscribe:") {
				gotUnsub++
			} else {
				gotSub++
			}
		}
		if gotSub != wantSub || gotUnsub != wantUnsub {
			t.Fatalf("round %d ops=%v: subscribe frames %d/%d, unsubscribe frames %d/%d",
				round, ops, gotSub, wantSub, gotUnsub, wantUnsub)
		}
		if subs.RefCount("conversation:1") != live {
			t.Fatalf("round %d: RefCount = %d, want %d", round, subs.RefCount("conversation:1"), live)
		}
	}
}

func TestSubscriptions_OfflineSubscribeSentOnOpen(t *testing.T) {
	subs, sender := newTestSubscriptions()
	sender.setOnline(false, 0)

	subs.Subscribe("notifications:u1")
	if len(sender.summary(t)) != 0 {
		t.Fatal("frame written while offline")
	}

	sender.setOnline(true, 7)
	subs.resubscribe(7)
	if got := strings.Join(sender.summary(t), ","); got != "subscribe:notifications:u1" {
		t.Errorf("frames = %q", got)
	}
}

func TestSubscriptions_ResubscribeOncePerSocket(t *testing.T) {
	subs, sender := newTestSubscriptions()
	subs.Subscribe("conversation:B")
	subs.Subscribe("conversation:A")

	// Already sent on generation 1: nothing to do.
	subs.resubscribe(1)
	if got := len(sender.summary(t)); got != 2 {
		t.Fatalf("frames = %d after same-generation resubscribe, want 2", got)
	}

	sender.setOnline(true, 2)
	subs.resubscribe(2)
	subs.resubscribe(2)
	got := sender.summary(t)[2:]
	if strings.Join(got, ",") != "subscribe:conversation:A,subscribe:conversation:B" {
		t.Errorf("resubscribe frames = %v, want A and B once each", got)
	}
}

func TestSubscriptions_Channels(t *testing.T) {
	subs, _ := newTestSubscriptions()
	subs.Subscribe("meeting:2")
	subs.Subscribe("conversation:1")
	subs.Subscribe("meeting:2")

	if got := strings.Join(subs.Channels(), ","); got != "conversation:1,meeting:2" {
		t.Errorf("Channels() = %q", got)
	}
}
