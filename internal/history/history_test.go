package history

import (
	"fmt"
	"testing"

	"github.com/voxbridge/voxbridge/pkg/provider/llm"
)

func TestBufferEvictsOldest(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(3)
	for i := range 5 {
		buf.Append(llm.Turn{Role: llm.RoleUser, Text: fmt.Sprintf("turn %d", i)})
	}
	turns := buf.Turns()
	if len(turns) != 3 {
		t.Fatalf("Len = %d, want 3", len(turns))
	}
	if turns[0].Text != "turn 2" || turns[2].Text != "turn 4" {
		t.Errorf("Turns() = %v, want turns 2..4 oldest first", turns)
	}
}

func TestBufferDefaultsMaxTurns(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(0)
	for i := range DefaultMaxTurns + 5 {
		buf.Append(llm.Turn{Role: llm.RoleAssistant, Text: fmt.Sprintf("%d", i)})
	}
	if buf.Len() != DefaultMaxTurns {
		t.Errorf("Len = %d, want %d", buf.Len(), DefaultMaxTurns)
	}
}

func TestBufferClear(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(5)
	buf.Append(llm.Turn{Role: llm.RoleUser, Text: "hello"})
	buf.Clear()
	if buf.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", buf.Len())
	}
}

func TestSummaryTruncates(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(5)
	long := ""
	for range 30 {
		long += "abcde"
	}
	buf.Append(llm.Turn{Role: llm.RoleUser, Text: "short"})
	buf.Append(llm.Turn{Role: llm.RoleAssistant, Text: long})

	got := buf.Summary(2)
	if len(got) != 2 {
		t.Fatalf("Summary len = %d, want 2", len(got))
	}
	if got[0].Text != "short" {
		t.Errorf("first preview = %q, want untruncated text", got[0].Text)
	}
	if len(got[1].Text) >= len(long) {
		t.Errorf("long turn not truncated, preview is %d bytes", len(got[1].Text))
	}
}

func TestSummaryTakesMostRecent(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(10)
	for i := range 6 {
		buf.Append(llm.Turn{Role: llm.RoleUser, Text: fmt.Sprintf("turn %d", i)})
	}
	got := buf.Summary(2)
	if len(got) != 2 || got[0].Text != "turn 4" || got[1].Text != "turn 5" {
		t.Errorf("Summary(2) = %v, want the last two turns oldest first", got)
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	t.Parallel()
	buf := NewBuffer(5)
	buf.Append(llm.Turn{Role: llm.RoleUser, Text: "original"})
	turns := buf.Turns()
	turns[0].Text = "mutated"
	if got := buf.Turns()[0].Text; got != "original" {
		t.Errorf("buffered turn = %q, want %q", got, "original")
	}
}
