// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/jeranaias/parley-tui/internal/model"
)

func newTestStore() *ConversationStore {
	return NewConversationStore(nil)
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore()

	conv := model.NewConversation("First")
	s.Upsert(conv)

	got, err := s.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "First" {
		t.Errorf("Title = %q, want First", got.Title)
	}

	// Get returns a copy, not the live object.
	got.Title = "mutated"
	again, _ := s.Get(conv.ID)
	if again.Title != "First" {
		t.Error("Get returned a live reference instead of a copy")
	}

	if _, err := s.Get("conv_missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Get unknown = %v, want ErrConversationNotFound", err)
	}
}

func TestListRecencyOrder(t *testing.T) {
	s := newTestStore()

	a := model.NewConversation("A")
	b := model.NewConversation("B")
	c := model.NewConversation("C")
	s.Upsert(a)
	s.Upsert(b)
	s.Upsert(c)

	// Touching A via a message append moves it to the front.
	s.AppendMessage(a.ID, model.NewUserMessage(a.ID, "hi"))

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List len = %d, want 3", len(list))
	}
	wantOrder := []string{a.ID, c.ID, b.ID}
	for i, conv := range list {
		if conv.ID != wantOrder[i] {
			t.Errorf("List[%d] = %q, want %q", i, conv.ID, wantOrder[i])
		}
	}
}

func TestAppendMessage_UnknownConversationIsNoOp(t *testing.T) {
	s := newTestStore()

	var calls int
	s.Subscribe(func(Snapshot) { calls++ })

	s.AppendMessage("conv_missing", model.NewUserMessage("conv_missing", "lost"))

	if calls != 0 {
		t.Errorf("append to unknown conversation published %d snapshots, want 0", calls)
	}
	if s.Len() != 0 {
		t.Errorf("store should remain empty, has %d conversations", s.Len())
	}
}

func TestPatchMessage(t *testing.T) {
	s := newTestStore()

	conv := model.NewConversation("Patch")
	s.Upsert(conv)
	msg := model.NewAssistantMessage(conv.ID)
	s.AppendMessage(conv.ID, msg)

	token := "hello"
	s.PatchMessage(conv.ID, msg.ID, MessagePatch{AppendToken: &token})

	complete := model.StatusComplete
	s.PatchMessage(conv.ID, msg.ID, MessagePatch{Status: &complete})

	got, _ := s.Get(conv.ID)
	stored := got.MessageByID(msg.ID)
	if stored.Status != model.StatusComplete {
		t.Errorf("status = %q, want complete", stored.Status)
	}
	if stored.Content != "hello" {
		t.Errorf("content = %q, want hello", stored.Content)
	}

	// Illegal transition: a terminal message stays terminal.
	failed := model.StatusFailed
	s.PatchMessage(conv.ID, msg.ID, MessagePatch{Status: &failed})
	got, _ = s.Get(conv.ID)
	if got.MessageByID(msg.ID).Status != model.StatusComplete {
		t.Error("terminal message was resurrected by a status patch")
	}

	// Patches for unknown targets are dropped without panicking.
	s.PatchMessage("conv_missing", msg.ID, MessagePatch{Status: &failed})
	s.PatchMessage(conv.ID, "msg_missing", MessagePatch{Status: &failed})
}

func TestReplaceConversationID(t *testing.T) {
	s := newTestStore()

	a := model.NewConversation("A")
	b := model.NewConversation("B")
	s.Upsert(a)
	s.Upsert(b)
	s.AppendMessage(a.ID, model.NewUserMessage(a.ID, "hi"))

	oldID := a.ID
	if err := s.ReplaceConversationID(oldID, "srv-1"); err != nil {
		t.Fatalf("ReplaceConversationID failed: %v", err)
	}

	if _, err := s.Get(oldID); !errors.Is(err, ErrConversationNotFound) {
		t.Error("old ID should no longer resolve")
	}
	got, err := s.Get("srv-1")
	if err != nil {
		t.Fatalf("new ID not found: %v", err)
	}
	for _, msg := range got.Messages {
		if msg.ConversationID != "srv-1" {
			t.Errorf("message %s still references %q", msg.ID, msg.ConversationID)
		}
	}

	// Re-keying preserves list position.
	list := s.List()
	if list[0].ID != "srv-1" {
		t.Errorf("re-keyed conversation lost its position, List[0] = %q", list[0].ID)
	}

	// Conflicts and unknown sources are rejected.
	if err := s.ReplaceConversationID(b.ID, "srv-1"); !errors.Is(err, ErrIDConflict) {
		t.Errorf("conflicting re-key = %v, want ErrIDConflict", err)
	}
	if err := s.ReplaceConversationID("conv_missing", "srv-2"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("unknown re-key = %v, want ErrConversationNotFound", err)
	}
}

func TestConfirmConversation(t *testing.T) {
	s := newTestStore()

	conv := model.NewConversation("Pending")
	provisional := conv.ID
	s.Upsert(conv)
	s.AppendMessage(provisional, model.NewUserMessage(provisional, "hi"))

	if err := s.ConfirmConversation(provisional, "srv-9"); err != nil {
		t.Fatalf("ConfirmConversation failed: %v", err)
	}

	got, err := s.Get("srv-9")
	if err != nil {
		t.Fatalf("confirmed conversation not found: %v", err)
	}
	if got.Status != model.ConversationActive {
		t.Errorf("status = %q, want active", got.Status)
	}
	for _, msg := range got.Messages {
		if msg.ConversationID != "srv-9" {
			t.Errorf("message still references %q", msg.ConversationID)
		}
	}

	// Confirming a non-pending conversation is rejected.
	if err := s.ConfirmConversation("srv-9", "srv-10"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm on active conversation = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.Get("srv-9"); err != nil {
		t.Error("rejected confirm must leave the conversation in place")
	}
}

func TestFailConversation(t *testing.T) {
	s := newTestStore()

	conv := model.NewConversation("Doomed")
	s.Upsert(conv)

	s.FailConversation(conv.ID)
	got, _ := s.Get(conv.ID)
	if got.Status != model.ConversationError {
		t.Errorf("status = %q, want error", got.Status)
	}

	// Unknown and repeat failures are dropped.
	s.FailConversation("conv_missing")
	s.FailConversation(conv.ID)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore()

	conv := model.NewConversation("Gone")
	s.Upsert(conv)

	var calls int
	s.Subscribe(func(Snapshot) { calls++ })

	s.Remove(conv.ID)
	if s.Len() != 0 {
		t.Fatalf("Len after Remove = %d, want 0", s.Len())
	}
	if calls != 1 {
		t.Fatalf("Remove published %d snapshots, want 1", calls)
	}

	// Second remove publishes nothing.
	s.Remove(conv.ID)
	if calls != 1 {
		t.Errorf("idempotent Remove published %d snapshots, want 1", calls)
	}
}

func TestSubscribeReceivesIsolatedSnapshots(t *testing.T) {
	s := newTestStore()

	var snaps []Snapshot
	token := s.Subscribe(func(snap Snapshot) {
		snaps = append(snaps, snap)
	})

	conv := model.NewConversation("Snap")
	s.Upsert(conv)
	msg := model.NewUserMessage(conv.ID, "one")
	s.AppendMessage(conv.ID, msg)

	if len(snaps) != 2 {
		t.Fatalf("received %d snapshots, want 2", len(snaps))
	}

	// The first snapshot was taken before the message existed and must
	// not reflect the later mutation.
	if got := snaps[0].Conversation(conv.ID); got == nil || len(got.Messages) != 0 {
		t.Error("earlier snapshot leaked a later mutation")
	}
	if got := snaps[1].Conversation(conv.ID); got == nil || len(got.Messages) != 1 {
		t.Error("second snapshot missing the appended message")
	}

	s.Unsubscribe(token)
	s.AppendMessage(conv.ID, model.NewUserMessage(conv.ID, "two"))
	if len(snaps) != 2 {
		t.Errorf("listener received snapshot after Unsubscribe")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore()
	s.Upsert(model.NewConversation("A"))
	s.Upsert(model.NewConversation("B"))

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if len(s.List()) != 0 {
		t.Error("List should be empty after Clear")
	}
}

func TestConcurrentMutations(t *testing.T) {
	s := newTestStore()
	conv := model.NewConversation("Busy")
	s.Upsert(conv)
	msg := model.NewAssistantMessage(conv.ID)
	s.AppendMessage(conv.ID, msg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				token := "x"
				s.PatchMessage(conv.ID, msg.ID, MessagePatch{AppendToken: &token})
				s.List()
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(conv.ID)
	if n := len(got.MessageByID(msg.ID).DisplayContent()); n != 8*50 {
		t.Errorf("accumulated %d tokens, want %d", n, 8*50)
	}
}
