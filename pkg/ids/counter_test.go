package ids

import "testing"

func TestCounterSequence(t *testing.T) {
	c := NewCounter(10)
	for want := int64(10); want < 15; want++ {
		if got := c.Next(); got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if c.Peek() != 15 {
		t.Errorf("expected peek 15, got %d", c.Peek())
	}

	c.Reset(3)
	if got := c.Next(); got != 3 {
		t.Errorf("expected 3 after reset, got %d", got)
	}
}

func TestCountersReset(t *testing.T) {
	c := NewCounters(1)
	c.Transform.Next()
	c.Straw.Next()
	c.Pixel.Next()
	c.Pixel.Next()

	c.Reset()

	if got := c.Transform.Next(); got != TransformStart {
		t.Errorf("transform counter: expected %d, got %d", TransformStart, got)
	}
	if got := c.Straw.Next(); got != StrawStart {
		t.Errorf("straw counter: expected %d, got %d", StrawStart, got)
	}
	if got := c.Pixel.Next(); got != 1 {
		t.Errorf("pixel counter: expected 1, got %d", got)
	}
}
