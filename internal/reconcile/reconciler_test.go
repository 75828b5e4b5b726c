// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

type recordingNotifier struct {
	mu      sync.Mutex
	toasts  []Toast
	systems []SystemNotification
}

func (n *recordingNotifier) Toast(t Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
}

func (n *recordingNotifier) SystemNotify(s SystemNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.systems = append(n.systems, s)
}

type countingPermission struct {
	state    string
	grant    string
	requests int
}

func (p *countingPermission) Permission() string { return p.state }

func (p *countingPermission) RequestPermission(context.Context) (string, error) {
	p.requests++
	p.state = p.grant
	return p.state, nil
}

// event canonicalizes a legacy frame the same way the dispatcher would.
func event(t *testing.T, frameType, data string) *models.CanonicalEvent {
	t.Helper()
	ev, err := realtime.NewDispatcher().Canonicalize(models.WireMessage{Type: frameType, Data: []byte(data)})
	if err != nil {
		t.Fatalf("Canonicalize(%s) error = %v", frameType, err)
	}
	return ev
}

func newTestReconciler(opts Options) (*Reconciler, *cache.QueryCache, *recordingNotifier) {
	store := cache.New()
	n := &recordingNotifier{}
	if opts.UserID == "" {
		opts.UserID = "u1"
	}
	opts.EnableToasts = true
	opts.Notifier = n
	return New(store, opts), store, n
}

func apply(t *testing.T, r *Reconciler, ev *models.CanonicalEvent) string {
	t.Helper()
	outcome, err := r.Apply(context.Background(), ev)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", ev.Type, err)
	}
	return outcome
}

// snapshot captures committed values for every key.
func snapshot(c *cache.QueryCache) map[string]any {
	out := make(map[string]any)
	for _, k := range c.Keys() {
		v, _ := c.Get(k)
		out[k] = v
	}
	return out
}

func TestReconciler_NotificationCreatedScenario(t *testing.T) {
	r, store, _ := newTestReconciler(Options{})
	store.Set(cache.NotificationsUnreadCount(), 3)

	ev := event(t, "notification_created", `{"id":"n1","isRead":false,"userId":"u1"}`)
	if got := apply(t, r, ev); got != OutcomeApplied {
		t.Fatalf("outcome = %s", got)
	}

	list, _ := cache.GetAs[[]models.Notification](store, cache.NotificationsList())
	if len(list) != 1 || list[0].ID != "n1" {
		t.Errorf("list = %+v, want [n1]", list)
	}
	if n, _ := cache.GetAs[int](store, cache.NotificationsUnreadCount()); n != 4 {
		t.Errorf("unread = %d, want 4", n)
	}
}

func TestReconciler_Idempotence(t *testing.T) {
	seed := func(c *cache.QueryCache) {
		c.Set(cache.ConversationMessages("42"), []models.Message{
			{ID: "m0", ConversationID: "42", Content: "old", Reactions: []models.Reaction{{UserID: "u3", Emoji: "👍"}}},
		})
		c.Set(cache.NotificationsList(), []models.Notification{{ID: "n0", IsRead: false}, {ID: "n9", IsRead: true}})
		c.Set(cache.NotificationsUnreadCount(), 1)
		c.Set(cache.MeetingsList(), []models.Meeting{{ID: "mt1", Status: models.MeetingScheduled}})
		c.Set(cache.WorksheetsList(), []models.Worksheet{{ID: "w0", Status: models.WorksheetAssigned}})
		c.Set(cache.WorksheetsPendingCount(), 1)
	}

	tests := []struct {
		frame string
		data  string
	}{
		{"message_sent", `{"id":"m1","conversationId":"42","senderId":"u2","content":"hi"}`},
		{"message_updated", `{"id":"m0","conversationId":"42","content":"edited","isEdited":true}`},
		{"message_deleted", `{"messageId":"m0","conversationId":"42"}`},
		{"message_read", `{"messageId":"m0","conversationId":"42","userId":"u2"}`},
		{"message_reaction", `{"messageId":"m0","conversationId":"42","userId":"u2","emoji":"🎉"}`},
		{"message_reaction", `{"messageId":"m0","conversationId":"42","userId":"u3","emoji":"👍","action":"remove"}`},
		{"notification_created", `{"id":"n1","isRead":false,"userId":"u1"}`},
		{"notification_updated", `{"id":"n0","isRead":true,"userId":"u1"}`},
		{"notification_deleted", `{"id":"n0","userId":"u1"}`},
		{"notification_read_all", `{"userId":"u1"}`},
		{"meeting_started", `{"id":"mt1","startedBy":"u2"}`},
		{"meeting_ended", `{"meetingId":"mt1"}`},
		{"participant-joined", `{"meetingId":"mt1","userId":"u2","participantName":"Sam"}`},
		{"participant-left", `{"meetingId":"mt1","userId":"u2"}`},
		{"worksheet_assigned", `{"id":"w1","status":"ASSIGNED","therapistId":"t1"}`},
		{"worksheet_completed", `{"id":"w0","clientId":"u2"}`},
		{"worksheet_updated", `{"id":"w0","status":"COMPLETED","title":"CBT log"}`},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			once, onceStore, _ := newTestReconciler(Options{})
			twice, twiceStore, _ := newTestReconciler(Options{})
			seed(onceStore)
			seed(twiceStore)

			ev := event(t, tt.frame, tt.data)
			apply(t, once, ev)
			apply(t, twice, ev)
			if got := apply(t, twice, ev); got == OutcomeApplied {
				t.Errorf("second application reported %s", got)
			}

			if a, b := snapshot(onceStore), snapshot(twiceStore); !reflect.DeepEqual(a, b) {
				t.Errorf("state after one application:\n%+v\nafter two:\n%+v", a, b)
			}
		})
	}
}

func TestReconciler_Messages(t *testing.T) {
	r, store, n := newTestReconciler(Options{})
	key := cache.ConversationMessages("42")

	apply(t, r, event(t, "message_sent", `{"id":"m1","conversationId":"42","senderId":"u2","senderName":"Ann","content":"first"}`))
	apply(t, r, event(t, "message_sent", `{"id":"m2","conversationId":"42","senderId":"u1","content":"second"}`))

	list, _ := cache.GetAs[[]models.Message](store, key)
	if len(list) != 2 || list[0].ID != "m2" || list[1].ID != "m1" {
		t.Fatalf("list = %+v, want newest first [m2 m1]", list)
	}
	if len(n.toasts) != 1 || n.toasts[0].Title != "New message from Ann" {
		t.Errorf("toasts = %+v, want one for the other user's message", n.toasts)
	}

	if got := apply(t, r, event(t, "message_updated", `{"id":"m404","conversationId":"42","content":"x"}`)); got != OutcomeDropped {
		t.Errorf("update of uncached message outcome = %s, want dropped", got)
	}

	apply(t, r, event(t, "message_reaction", `{"messageId":"m1","conversationId":"42","userId":"u1","emoji":"👍"}`))
	list, _ = cache.GetAs[[]models.Message](store, key)
	if len(list[1].Reactions) != 1 {
		t.Errorf("reactions = %+v", list[1].Reactions)
	}

	apply(t, r, event(t, "message_deleted", `{"id":"m1","conversationId":"42"}`))
	list, _ = cache.GetAs[[]models.Message](store, key)
	if len(list) != 1 || list[0].ID != "m2" {
		t.Errorf("after delete list = %+v", list)
	}
}

func TestReconciler_MessageSentStalesConversations(t *testing.T) {
	r, store, _ := newTestReconciler(Options{})
	store.Set(cache.ConversationsList(), []string{"42"})

	apply(t, r, event(t, "message_sent", `{"id":"m1","conversationId":"42"}`))

	entry, ok := store.Entry(cache.ConversationsList())
	if !ok || !entry.Stale {
		t.Errorf("conversations list entry = %+v, want stale", entry)
	}
}

func TestReconciler_NotificationCounters(t *testing.T) {
	r, store, _ := newTestReconciler(Options{})
	count := func() int {
		n, _ := cache.GetAs[int](store, cache.NotificationsUnreadCount())
		return n
	}

	apply(t, r, event(t, "notification_created", `{"id":"n1","isRead":false}`))
	apply(t, r, event(t, "notification_created", `{"id":"n2","isRead":true}`))
	if count() != 1 {
		t.Fatalf("unread = %d, want 1", count())
	}

	apply(t, r, event(t, "notification_updated", `{"id":"n2","isRead":false}`))
	if count() != 2 {
		t.Errorf("unread after n2 marked unread = %d, want 2", count())
	}
	apply(t, r, event(t, "notification_updated", `{"id":"n1","isRead":true}`))
	if count() != 1 {
		t.Errorf("unread after n1 read = %d, want 1", count())
	}

	apply(t, r, event(t, "notification_read_all", `{}`))
	if count() != 0 {
		t.Errorf("unread after read_all = %d, want 0", count())
	}
	list, _ := cache.GetAs[[]models.Notification](store, cache.NotificationsList())
	for _, n := range list {
		if !n.IsRead {
			t.Errorf("%s still unread after read_all", n.ID)
		}
	}
}

func TestReconciler_NotificationDeleteFloorsCounter(t *testing.T) {
	r, store, _ := newTestReconciler(Options{})
	store.Set(cache.NotificationsList(), []models.Notification{{ID: "n1"}, {ID: "n2"}})
	store.Set(cache.NotificationsUnreadCount(), 1)

	apply(t, r, event(t, "notification_deleted", `{"id":"n1"}`))
	apply(t, r, event(t, "notification_deleted", `{"id":"n2"}`))

	if n, _ := cache.GetAs[int](store, cache.NotificationsUnreadCount()); n != 0 {
		t.Errorf("unread = %d, want floor at 0", n)
	}
	if got := apply(t, r, event(t, "notification_deleted", `{"id":"n3"}`)); got != OutcomeNoop {
		t.Errorf("delete of absent id outcome = %s, want noop", got)
	}
}

func TestReconciler_SkipsOtherUsersEvents(t *testing.T) {
	r, store, n := newTestReconciler(Options{UserID: "u1"})

	got := apply(t, r, event(t, "notification_created", `{"id":"n1","isRead":false,"userId":"u2"}`))
	if got != OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", got)
	}
	if _, ok := store.Get(cache.NotificationsList()); ok {
		t.Error("cache mutated by another user's notification")
	}
	if len(n.toasts) != 0 {
		t.Error("toast raised for another user's notification")
	}
}

func TestReconciler_ToastPriority(t *testing.T) {
	tests := []struct {
		priority string
		wantKind ToastKind
		wantSecs float64
	}{
		{"urgent", ToastError, 10},
		{"HIGH", ToastWarning, 5},
		{"NORMAL", ToastInfo, 5},
		{"", ToastInfo, 5},
	}
	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			r, _, n := newTestReconciler(Options{})
			apply(t, r, event(t, "notification_created",
				`{"id":"n1","title":"Hello","isRead":false,"priority":"`+tt.priority+`"}`))
			if len(n.toasts) != 1 {
				t.Fatalf("toasts = %d, want 1", len(n.toasts))
			}
			if n.toasts[0].Kind != tt.wantKind || n.toasts[0].Duration.Seconds() != tt.wantSecs {
				t.Errorf("toast = %+v", n.toasts[0])
			}
		})
	}
}

func TestReconciler_SurfacingGates(t *testing.T) {
	created := `{"id":"n1","title":"Hi","isRead":false,"priority":"URGENT"}`

	t.Run("include predicate rejects", func(t *testing.T) {
		r, _, n := newTestReconciler(Options{Include: func(*models.CanonicalEvent) bool { return false }})
		apply(t, r, event(t, "notification_created", created))
		if len(n.toasts) != 0 {
			t.Errorf("toasts = %+v, want none", n.toasts)
		}
	})

	t.Run("system requires granted permission", func(t *testing.T) {
		perm := &countingPermission{state: PermissionDefault, grant: PermissionDenied}
		r, _, n := newTestReconciler(Options{EnableSystem: true, Permission: perm})
		apply(t, r, event(t, "notification_created", created))
		if len(n.systems) != 0 {
			t.Error("system notification shown without permission")
		}
		if perm.requests != 0 {
			t.Error("reducer requested permission")
		}
	})

	t.Run("system shown once granted at mount", func(t *testing.T) {
		perm := &countingPermission{state: PermissionDefault, grant: PermissionGranted}
		r, _, n := newTestReconciler(Options{EnableSystem: true, Permission: perm})
		r.Mount(context.Background())
		r.Mount(context.Background())
		if perm.requests != 1 {
			t.Errorf("permission requested %d times, want 1", perm.requests)
		}
		apply(t, r, event(t, "notification_created", created))
		if len(n.systems) != 1 || !n.systems[0].RequireInteraction || n.systems[0].Tag != "n1" {
			t.Errorf("systems = %+v", n.systems)
		}
	})

	t.Run("mount does not prompt after a decision", func(t *testing.T) {
		perm := &countingPermission{state: PermissionDenied}
		r, _, _ := newTestReconciler(Options{EnableSystem: true, Permission: perm})
		r.Mount(context.Background())
		if perm.requests != 0 {
			t.Errorf("permission requested %d times, want 0", perm.requests)
		}
	})
}

func TestReconciler_MeetingsAndParticipants(t *testing.T) {
	r, store, n := newTestReconciler(Options{})
	store.Set(cache.MeetingsList(), []models.Meeting{{ID: "mt1", Title: "Weekly", Status: models.MeetingScheduled}})

	apply(t, r, event(t, "meeting-started", `{"meetingId":"mt1","startedBy":"u1"}`))
	list, _ := cache.GetAs[[]models.Meeting](store, cache.MeetingsList())
	if list[0].Status != models.MeetingInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", list[0].Status)
	}
	if len(n.toasts) != 0 {
		t.Errorf("toast for a meeting the user started: %+v", n.toasts)
	}

	apply(t, r, event(t, "meeting_ended", `{"id":"mt1"}`))
	list, _ = cache.GetAs[[]models.Meeting](store, cache.MeetingsList())
	if list[0].Status != models.MeetingCompleted {
		t.Errorf("status = %s, want COMPLETED", list[0].Status)
	}
	if len(n.toasts) != 1 || n.toasts[0].Message != "Weekly has ended" {
		t.Errorf("toasts = %+v", n.toasts)
	}

	if got := apply(t, r, event(t, "meeting_started", `{"id":"mt404"}`)); got != OutcomeDropped {
		t.Errorf("uncached meeting outcome = %s, want dropped", got)
	}
	if entry, _ := store.Entry(cache.MeetingsList()); !entry.Stale {
		t.Error("meetings list not marked stale for an uncached meeting")
	}

	apply(t, r, event(t, "participant-joined", `{"meetingId":"mt1","userId":"u2","participantName":"Sam"}`))
	apply(t, r, event(t, "participant-joined", `{"meetingId":"mt1","userId":"u1","participantName":"Me"}`))
	people, _ := cache.GetAs[[]models.MeetingParticipant](store, cache.MeetingParticipants("mt1"))
	if len(people) != 2 {
		t.Errorf("participants = %+v", people)
	}
	if last := n.toasts[len(n.toasts)-1]; last.Message != "Sam joined the meeting" {
		t.Errorf("last toast = %+v, want only the other participant announced", last)
	}
}

func TestReconciler_DuplicateMeetingEventsToastOnce(t *testing.T) {
	tests := []struct {
		name      string
		cached    []models.Meeting
		frame     string
		wantOut   []string
		wantToast int
	}{
		{
			name:      "uncached meeting started",
			frame:     "meeting_started",
			wantOut:   []string{OutcomeDropped, OutcomeDropped},
			wantToast: 0,
		},
		{
			name:      "uncached meeting ended",
			frame:     "meeting_ended",
			wantOut:   []string{OutcomeDropped, OutcomeDropped},
			wantToast: 0,
		},
		{
			name:      "cached meeting started",
			cached:    []models.Meeting{{ID: "mt9", Title: "Intake", Status: models.MeetingScheduled}},
			frame:     "meeting_started",
			wantOut:   []string{OutcomeApplied, OutcomeNoop},
			wantToast: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store, n := newTestReconciler(Options{UserID: "u1"})
			if tt.cached != nil {
				store.Set(cache.MeetingsList(), tt.cached)
			}

			for i, want := range tt.wantOut {
				got := apply(t, r, event(t, tt.frame, `{"id":"mt9","startedBy":"u2"}`))
				if got != want {
					t.Errorf("delivery %d outcome = %s, want %s", i+1, got, want)
				}
			}
			if len(n.toasts) != tt.wantToast {
				t.Errorf("toasts = %d, want %d: %+v", len(n.toasts), tt.wantToast, n.toasts)
			}
		})
	}
}

func TestReconciler_WorksheetPendingCount(t *testing.T) {
	r, store, n := newTestReconciler(Options{UserID: "client"})
	pending := func() int {
		c, _ := cache.GetAs[int](store, cache.WorksheetsPendingCount())
		return c
	}

	apply(t, r, event(t, "worksheet_assigned", `{"id":"w1","title":"Mood log","status":"ASSIGNED","therapistId":"t1","clientId":"client"}`))
	apply(t, r, event(t, "worksheet_assigned", `{"id":"w2","status":"COMPLETED"}`))
	if pending() != 1 {
		t.Fatalf("pending = %d, want 1", pending())
	}
	if len(n.toasts) != 2 || n.toasts[0].Title != "New Worksheet Assigned" {
		t.Errorf("toasts = %+v", n.toasts)
	}

	apply(t, r, event(t, "worksheet_completed", `{"id":"w1","clientId":"client"}`))
	if pending() != 0 {
		t.Errorf("pending after completion = %d, want 0", pending())
	}
	if len(n.toasts) != 2 {
		t.Error("toast raised for the user's own completion")
	}

	apply(t, r, event(t, "worksheet_updated", `{"id":"w1","status":"IN_PROGRESS"}`))
	if pending() != 1 {
		t.Errorf("pending after reopening = %d, want 1", pending())
	}
}

func TestReconciler_AttachAndPayloadMismatch(t *testing.T) {
	r, store, _ := newTestReconciler(Options{})
	d := realtime.NewDispatcher()
	detach := r.Attach(d)

	err := d.Dispatch(context.Background(), "", models.WireMessage{
		Type: "notification_created",
		Data: []byte(`{"id":"n1","isRead":false}`),
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if _, ok := store.Get(cache.NotificationsList()); !ok {
		t.Error("attached reconciler did not reduce the event")
	}

	detach()
	for _, et := range EventTypes() {
		if d.HandlerCount(et) != 0 {
			t.Errorf("%s still has handlers after detach", et)
		}
	}

	_, err = r.Apply(context.Background(), &models.CanonicalEvent{Type: models.EventMessageSent, Payload: &models.Notification{}})
	if !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("Apply() error = %v, want ErrPayloadMismatch", err)
	}
	if got, _ := r.Apply(context.Background(), &models.CanonicalEvent{Type: models.EventTypingStart}); got != OutcomeIgnored {
		t.Errorf("typing outcome = %s, want ignored", got)
	}
}
