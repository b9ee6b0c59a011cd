package channels

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupe(t *testing.T) {
	d := NewDedupe(time.Minute, 10)
	if d.IsDuplicate("C1:1700000000.0001") {
		t.Fatal("first sighting reported as duplicate")
	}
	if !d.IsDuplicate("C1:1700000000.0001") {
		t.Error("second sighting not reported as duplicate")
	}
	if d.IsDuplicate("") {
		t.Error("empty keys are never duplicates")
	}
}

func TestDedupeExpires(t *testing.T) {
	d := NewDedupe(20*time.Millisecond, 10)
	d.IsDuplicate("k")
	time.Sleep(60 * time.Millisecond)
	if d.IsDuplicate("k") {
		t.Error("expired key reported as duplicate")
	}
}

func TestDedupeConcurrentFirstSighting(t *testing.T) {
	d := NewDedupe(time.Minute, 100)
	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.IsDuplicate("C1:1700000000.0002") {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	if fresh.Load() != 1 {
		t.Errorf("%d goroutines saw the event as new, want 1", fresh.Load())
	}
}

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Errorf("short = %q", got)
	}

	text := "line one\nline two\nline three"
	got := SplitMessage(text, 12)
	if len(got) != 3 || got[0] != "line one" || got[2] != "line three" {
		t.Errorf("lines = %q", got)
	}

	long := strings.Repeat("あ", 25)
	for _, c := range SplitMessage(long, 10) {
		if n := len([]rune(c)); n > 10 {
			t.Errorf("chunk of %d runes", n)
		}
	}
}
