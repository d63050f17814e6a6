package logger

import (
	"strings"
	"sync"
	"testing"
)

func TestProgressBar_Render(t *testing.T) {
	pb := NewProgressBar(4, 10, false)
	if got := pb.Render(); got != "[          ] 0/4 (0%)" {
		t.Errorf("unexpected initial render %q", got)
	}

	pb.Increment(false)
	pb.Increment(true)
	if got := pb.Render(); got != "[=====     ] 2/4 (50%) 1 failed" {
		t.Errorf("unexpected render %q", got)
	}

	pb.Increment(false)
	pb.Increment(false)
	if pb.Percentage() != 100 || pb.Done() != 4 {
		t.Errorf("expected complete bar, got %d%% (%d done)", pb.Percentage(), pb.Done())
	}
}

func TestProgressBar_Edges(t *testing.T) {
	empty := NewProgressBar(0, 0, false)
	if empty.Percentage() != 0 {
		t.Error("a zero-total bar stays at 0%")
	}
	if !strings.HasPrefix(empty.Render(), "["+strings.Repeat(" ", 10)+"]") {
		t.Errorf("width defaults to 10, got %q", empty.Render())
	}

	over := NewProgressBar(1, 4, false)
	over.Increment(false)
	over.Increment(false)
	if over.Percentage() != 100 {
		t.Errorf("percentage is capped at 100, got %d", over.Percentage())
	}
}

func TestProgressBar_ConcurrentIncrement(t *testing.T) {
	pb := NewProgressBar(50, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pb.Increment(i%10 == 0)
		}(i)
	}
	wg.Wait()
	if pb.Done() != 50 {
		t.Errorf("expected 50 done, got %d", pb.Done())
	}
	if !strings.HasSuffix(pb.Render(), "5 failed") {
		t.Errorf("expected 5 failures, got %q", pb.Render())
	}
}
