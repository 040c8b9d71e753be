// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := NewRecorder(filepath.Join(t.TempDir(), "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	return rec
}

func sampleStat(convID, outcome string, tokens int) ExchangeStat {
	return ExchangeStat{
		ConversationID: convID,
		MessageID:      "msg-1",
		StartedAt:      time.Now(),
		TTFT:           200 * time.Millisecond,
		Duration:       2 * time.Second,
		Tokens:         tokens,
		Chars:          tokens * 4,
		Outcome:        outcome,
	}
}

func TestRecordAndRecent(t *testing.T) {
	rec := newTestRecorder(t)

	rec.Record(sampleStat("c1", OutcomeComplete, 50))
	rec.Record(sampleStat("c2", OutcomeFailed, 10))

	stats, err := rec.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d, want 2", len(stats))
	}
	for _, st := range stats {
		if st.MessageID != "msg-1" {
			t.Errorf("message ID = %q", st.MessageID)
		}
		if st.TTFT != 200*time.Millisecond {
			t.Errorf("TTFT = %v", st.TTFT)
		}
	}
}

func TestSummarize(t *testing.T) {
	rec := newTestRecorder(t)

	rec.Record(sampleStat("c1", OutcomeComplete, 100))
	rec.Record(sampleStat("c1", OutcomeComplete, 50))
	rec.Record(sampleStat("c1", OutcomeFailed, 5))
	rec.Record(sampleStat("c1", OutcomeCancelled, 20))

	s, err := rec.Summarize(time.Hour)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Exchanges != 4 || s.Completed != 2 || s.Failed != 1 || s.Cancelled != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.TotalTokens != 175 {
		t.Errorf("total tokens = %d, want 175", s.TotalTokens)
	}
	if s.AvgTTFT != 200*time.Millisecond {
		t.Errorf("avg TTFT = %v, want 200ms", s.AvgTTFT)
	}
	// Two completed exchanges at 2s each: (100+50)/2 tokens over 2s.
	if s.AvgRate < 37 || s.AvgRate > 38 {
		t.Errorf("avg rate = %v, want ~37.5", s.AvgRate)
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	rec := newTestRecorder(t)

	s, err := rec.Summarize(time.Hour)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Exchanges != 0 || s.AvgTTFT != 0 || s.AvgRate != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestPrune(t *testing.T) {
	rec := newTestRecorder(t)

	old := sampleStat("c1", OutcomeComplete, 10)
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	rec.Record(old)
	rec.Record(sampleStat("c1", OutcomeComplete, 10))

	deleted, err := rec.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	stats, err := rec.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Errorf("remaining = %d, want 1", len(stats))
	}
}

func TestTokensPerSecond(t *testing.T) {
	st := ExchangeStat{Tokens: 100, Duration: 2 * time.Second}
	if got := st.TokensPerSecond(); got != 50 {
		t.Errorf("rate = %v, want 50", got)
	}
	if got := (ExchangeStat{}).TokensPerSecond(); got != 0 {
		t.Errorf("zero stat rate = %v, want 0", got)
	}
}
