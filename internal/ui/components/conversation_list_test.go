// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

func listFixtures() []*model.Conversation {
	a := model.NewConversation("Trip planning")
	a.Activate("srv-a")
	b := model.NewConversation("Recipe ideas")
	b.Activate("srv-b")
	c := model.NewConversation("Draft email")
	return []*model.Conversation{a, b, c}
}

func TestConversationListSelection(t *testing.T) {
	l := NewConversationList(testTheme())
	convs := listFixtures()
	l.SetConversations(convs)

	if got := l.Selected(); got == nil || got.ID != convs[0].ID {
		t.Fatalf("initial selection should be first conversation")
	}

	l.MoveDown()
	l.MoveDown()
	if got := l.Selected(); got.ID != convs[2].ID {
		t.Errorf("selection after two MoveDown = %s, want %s", got.ID, convs[2].ID)
	}

	// Already at the bottom, stays put.
	l.MoveDown()
	if got := l.Selected(); got.ID != convs[2].ID {
		t.Errorf("MoveDown at bottom moved selection to %s", got.ID)
	}

	l.MoveUp()
	if got := l.Selected(); got.ID != convs[1].ID {
		t.Errorf("MoveUp = %s, want %s", got.ID, convs[1].ID)
	}
}

func TestConversationListSelectionSurvivesUpdate(t *testing.T) {
	l := NewConversationList(testTheme())
	convs := listFixtures()
	l.SetConversations(convs)
	l.MoveDown()
	selectedID := l.Selected().ID

	// New list with the selected conversation promoted to the front.
	reordered := []*model.Conversation{convs[1], convs[0], convs[2]}
	l.SetConversations(reordered)

	if got := l.Selected(); got.ID != selectedID {
		t.Errorf("selection lost across update: got %s, want %s", got.ID, selectedID)
	}
}

func TestConversationListSelectByID(t *testing.T) {
	l := NewConversationList(testTheme())
	convs := listFixtures()
	l.SetConversations(convs)

	l.Select(convs[2].ID)
	if got := l.Selected(); got.ID != convs[2].ID {
		t.Errorf("Select(%s) landed on %s", convs[2].ID, got.ID)
	}

	// Unknown ID leaves the selection alone.
	l.Select("missing")
	if got := l.Selected(); got.ID != convs[2].ID {
		t.Errorf("Select(unknown) moved selection to %s", got.ID)
	}
}

func TestStatusMarker(t *testing.T) {
	pending := model.NewConversation("p")
	if got := statusMarker(pending); got != styles.StatusIndicators.Pending {
		t.Errorf("pending marker = %q", got)
	}

	failed := model.NewConversation("f")
	failed.FailCreation()
	if got := statusMarker(failed); got != styles.StatusIndicators.Error {
		t.Errorf("error marker = %q", got)
	}

	active := model.NewConversation("a")
	active.Activate("srv-1")
	active.AddMessage(model.NewAssistantMessage(active.ID))
	if got := statusMarker(active); got != styles.StatusIndicators.Active {
		t.Errorf("in-flight marker = %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{49 * time.Hour, "2d"},
	}
	for _, tc := range tests {
		if got := relativeTime(now.Add(-tc.age)); got != tc.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestConversationListView(t *testing.T) {
	l := NewConversationList(testTheme())
	l.SetSize(32, 20)

	if out := l.View(); !strings.Contains(out, "No conversations") {
		t.Errorf("empty list should render placeholder: %q", out)
	}

	l.SetConversations(listFixtures())
	out := l.View()
	for _, title := range []string{"Trip planning", "Recipe ideas", "Draft email"} {
		if !strings.Contains(out, title) {
			t.Errorf("list view missing %q", title)
		}
	}
}
