package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfter(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(100 * time.Millisecond)

	c.Advance(99 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-ch:
		if want := epoch.Add(100 * time.Millisecond); !got.Equal(want) {
			t.Errorf("fired at %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not fire")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTicker(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(10 * time.Millisecond)

	for i := 1; i <= 3; i++ {
		c.Advance(10 * time.Millisecond)
		select {
		case got := <-ticker.C:
			if want := epoch.Add(time.Duration(i) * 10 * time.Millisecond); !got.Equal(want) {
				t.Errorf("tick %d at %v, want %v", i, got, want)
			}
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	c.Advance(time.Second)
	select {
	case <-ticker.C:
		t.Error("tick after Stop")
	default:
	}
}

func TestFakeBlockUntil(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.BlockUntil(1)
		close(done)
	}()

	c.After(time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BlockUntil did not return")
	}
}
