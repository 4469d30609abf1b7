package clock

import (
	"testing"
	"time"
)

func TestFakeTickerFiresPerInterval(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	f.Advance(999 * time.Millisecond)
	select {
	case <-tk.C:
		t.Fatalf("ticked before interval elapsed")
	default:
	}
	f.Advance(time.Millisecond)
	select {
	case <-tk.C:
	default:
		t.Fatalf("expected tick after one interval")
	}
}

func TestFakeTickerStop(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	tk.Stop()
	f.Advance(5 * time.Second)
	select {
	case <-tk.C:
		t.Fatalf("stopped ticker delivered a tick")
	default:
	}
	if f.Pending() != 0 {
		t.Fatalf("pending=%d, want 0", f.Pending())
	}
}

func TestFakeAfter(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ch := f.After(2 * time.Second)
	f.Advance(time.Second)
	select {
	case <-ch:
		t.Fatalf("fired early")
	default:
	}
	f.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatalf("expected After to fire")
	}
}
