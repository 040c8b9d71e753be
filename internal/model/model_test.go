// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and messages.
package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE STATUS MACHINE TESTS
// =============================================================================

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage("conv_1")

	if msg.Status != StatusStreaming {
		t.Fatalf("new assistant message status = %q, want %q", msg.Status, StatusStreaming)
	}

	for _, token := range []string{"Hel", "lo", ", world"} {
		if !msg.AppendToken(token) {
			t.Errorf("AppendToken(%q) rejected on streaming message", token)
		}
	}

	if got := msg.DisplayContent(); got != "Hello, world" {
		t.Errorf("DisplayContent() during streaming = %q, want %q", got, "Hello, world")
	}

	if !msg.Complete() {
		t.Fatal("Complete() should succeed on streaming message")
	}
	if msg.Status != StatusComplete {
		t.Errorf("status after Complete = %q, want %q", msg.Status, StatusComplete)
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content after Complete = %q, want concatenation of tokens in order", msg.Content)
	}

	// Terminal messages never resurrect.
	if msg.AppendToken("late") {
		t.Error("AppendToken should be rejected after Complete")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("late token mutated terminal content: %q", msg.Content)
	}
}

func TestMessage_FailPreservesPartialContent(t *testing.T) {
	msg := NewAssistantMessage("conv_1")
	msg.AppendToken("Thinking...")

	if !msg.Fail() {
		t.Fatal("Fail() should succeed on streaming message")
	}
	if msg.Status != StatusFailed {
		t.Errorf("status = %q, want %q", msg.Status, StatusFailed)
	}
	if msg.Content != "Thinking..." {
		t.Errorf("partial content not preserved: %q", msg.Content)
	}

	// Fail is terminal: a second Fail or Complete is a no-op.
	if msg.Fail() {
		t.Error("Fail() should be a no-op on failed message")
	}
	if msg.Complete() {
		t.Error("Complete() should be a no-op on failed message")
	}
}

func TestMessage_ResetForRetry(t *testing.T) {
	assistant := NewAssistantMessage("conv_1")
	assistant.AppendToken("partial")
	assistant.Fail()

	if !assistant.ResetForRetry() {
		t.Fatal("ResetForRetry should succeed on failed assistant message")
	}
	if assistant.Status != StatusStreaming {
		t.Errorf("assistant status after retry reset = %q, want %q", assistant.Status, StatusStreaming)
	}
	if assistant.DisplayContent() != "" {
		t.Errorf("assistant content should be cleared for retry, got %q", assistant.DisplayContent())
	}

	user := NewUserMessage("conv_1", "hi there")
	user.Fail()
	if !user.ResetForRetry() {
		t.Fatal("ResetForRetry should succeed on failed user message")
	}
	if user.Status != StatusSending {
		t.Errorf("user status after retry reset = %q, want %q", user.Status, StatusSending)
	}
	if user.Content != "hi there" {
		t.Errorf("user content should be preserved for retry, got %q", user.Content)
	}

	// Non-failed messages cannot be reset.
	complete := NewUserMessage("conv_1", "done")
	complete.Complete()
	if complete.ResetForRetry() {
		t.Error("ResetForRetry should be rejected on complete message")
	}
}

func TestMessage_CloneFlattensStream(t *testing.T) {
	msg := NewAssistantMessage("conv_1")
	msg.AppendToken("abc")

	clone := msg.Clone()
	if clone.Content != "abc" {
		t.Errorf("Clone().Content = %q, want flattened stream %q", clone.Content, "abc")
	}

	// Mutating the original must not affect the clone.
	msg.AppendToken("def")
	if clone.Content != "abc" {
		t.Error("clone shares state with original")
	}
}

func TestMessage_CloneDisplaysPartialContentWhileStreaming(t *testing.T) {
	msg := NewAssistantMessage("conv_1")
	msg.AppendToken("Hel")
	msg.AppendToken("lo")

	// Snapshots hand the UI clones mid-stream; the partial text must
	// render token by token, not only after the message settles.
	clone := msg.Clone()
	if clone.Status != StatusStreaming {
		t.Fatalf("clone status = %q, want %q", clone.Status, StatusStreaming)
	}
	if got := clone.DisplayContent(); got != "Hello" {
		t.Errorf("clone DisplayContent() = %q, want %q", got, "Hello")
	}
	if got := clone.Preview(10); got != "Hello" {
		t.Errorf("clone Preview(10) = %q, want %q", got, "Hello")
	}
}

// =============================================================================
// CONVERSATION STATUS MACHINE TESTS
// =============================================================================

func TestConversation_ActivateReplacesProvisionalID(t *testing.T) {
	conv := NewConversation("Test")

	if !IsProvisionalID(conv.ID) {
		t.Fatalf("new conversation ID %q should be provisional", conv.ID)
	}
	if conv.Status != ConversationPending {
		t.Fatalf("new conversation status = %q, want %q", conv.Status, ConversationPending)
	}

	if !conv.Activate("srv-42") {
		t.Fatal("Activate should succeed on pending conversation")
	}
	if conv.ID != "srv-42" {
		t.Errorf("ID after Activate = %q, want srv-42", conv.ID)
	}
	if conv.Status != ConversationActive {
		t.Errorf("status after Activate = %q, want %q", conv.Status, ConversationActive)
	}

	// Activation is one-shot.
	if conv.Activate("srv-43") {
		t.Error("Activate should be rejected on active conversation")
	}
	if conv.ID != "srv-42" {
		t.Errorf("second Activate changed ID to %q", conv.ID)
	}
}

func TestConversation_FailCreation(t *testing.T) {
	conv := NewConversation("Test")
	if !conv.FailCreation() {
		t.Fatal("FailCreation should succeed on pending conversation")
	}
	if conv.Status != ConversationError {
		t.Errorf("status = %q, want %q", conv.Status, ConversationError)
	}
	if conv.FailCreation() {
		t.Error("FailCreation should be a no-op on errored conversation")
	}
}

func TestConversation_InFlight(t *testing.T) {
	conv := NewConversation("Test")
	conv.Activate("srv-1")

	if conv.InFlight() {
		t.Error("empty conversation should not be in flight")
	}

	user := NewUserMessage(conv.ID, "hello")
	assistant := NewAssistantMessage(conv.ID)
	conv.AddMessage(user)
	conv.AddMessage(assistant)

	if !conv.InFlight() {
		t.Error("conversation with streaming assistant should be in flight")
	}

	user.Complete()
	assistant.Complete()
	if conv.InFlight() {
		t.Error("conversation with all-terminal messages should not be in flight")
	}
}

func TestConversation_FailedExchange(t *testing.T) {
	conv := NewConversation("Test")
	conv.Activate("srv-1")

	user := NewUserMessage(conv.ID, "hello")
	assistant := NewAssistantMessage(conv.ID)
	conv.AddMessage(user)
	conv.AddMessage(assistant)

	user.Complete()
	assistant.AppendToken("part")
	assistant.Fail()

	// Either member's ID selects the pair.
	for _, id := range []string{user.ID, assistant.ID} {
		u, a := conv.FailedExchange(id)
		if u != user || a != assistant {
			t.Errorf("FailedExchange(%q) did not return the exchange pair", id)
		}
	}

	// A fully complete pair is not retryable.
	assistant.ResetForRetry()
	assistant.Complete()
	if u, a := conv.FailedExchange(user.ID); u != nil || a != nil {
		t.Error("FailedExchange should return nils for a complete pair")
	}

	// Unknown ID yields nils.
	if u, a := conv.FailedExchange("msg_nope"); u != nil || a != nil {
		t.Error("FailedExchange should return nils for unknown message")
	}
}

func TestConversation_MessageOrderPreserved(t *testing.T) {
	conv := NewConversation("Order")
	conv.Activate("srv-1")

	var wantIDs []string
	for i := 0; i < 5; i++ {
		u := NewUserMessage(conv.ID, "msg")
		a := NewAssistantMessage(conv.ID)
		conv.AddMessage(u)
		conv.AddMessage(a)
		u.Complete()
		a.Complete()
		wantIDs = append(wantIDs, u.ID, a.ID)
	}

	for i, msg := range conv.Messages {
		if msg.ID != wantIDs[i] {
			t.Fatalf("message %d out of order: got %q, want %q", i, msg.ID, wantIDs[i])
		}
	}

	// User message and its paired assistant response are adjacent.
	for i := 0; i < len(conv.Messages); i += 2 {
		if conv.Messages[i].Role != RoleUser || conv.Messages[i+1].Role != RoleAssistant {
			t.Fatalf("pair at %d not user+assistant adjacent", i)
		}
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := NewConversation("")
	if conv.Preview() != "Empty conversation" {
		t.Errorf("empty conversation preview = %q", conv.Preview())
	}
	if conv.DisplayTitle() != "New Conversation" {
		t.Errorf("untitled DisplayTitle = %q", conv.DisplayTitle())
	}

	long := strings.Repeat("x", 300)
	conv.AddMessage(NewUserMessage(conv.ID, long))
	if got := conv.Preview(); len([]rune(got)) > 100 {
		t.Errorf("preview too long: %d runes", len([]rune(got)))
	}
}

// =============================================================================
// USER TESTS
// =============================================================================

func TestUser_DisplayName(t *testing.T) {
	u := &User{Name: "Ada", Email: "ada@example.com"}
	if u.DisplayName() != "Ada" {
		t.Errorf("DisplayName = %q, want Ada", u.DisplayName())
	}

	u.Name = ""
	if u.DisplayName() != "ada@example.com" {
		t.Errorf("DisplayName fallback = %q, want email", u.DisplayName())
	}
}
