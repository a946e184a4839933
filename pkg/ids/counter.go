// Package ids provides the monotonic identifier sequences used while
// building an instrument tree.
package ids

// Counter hands out consecutive integers starting from a base value.
type Counter struct {
	start int64
	next  int64
}

// NewCounter creates a counter whose first Next returns start.
func NewCounter(start int64) *Counter {
	return &Counter{start: start, next: start}
}

// Next returns the current identifier and advances the counter.
func (c *Counter) Next() int64 {
	id := c.next
	c.next++
	return id
}

// Peek returns the identifier the next call to Next will return.
func (c *Counter) Peek() int64 { return c.next }

// Start returns the base value the counter was last reset to.
func (c *Counter) Start() int64 { return c.start }

// Reset rewinds the counter so the next identifier is start.
func (c *Counter) Reset(start int64) {
	c.start = start
	c.next = start
}

// Counters bundles the sequences shared by one build run.
type Counters struct {
	Transform *Counter
	Straw     *Counter
	Pixel     *Counter
}

const (
	// TransformStart is the first transformation suffix, as in trans_1
	TransformStart = 1

	// StrawStart is the first global straw identifier
	StrawStart = 0
)

// NewCounters creates the counters for a build with pixel ids starting at pixelStart.
func NewCounters(pixelStart int64) *Counters {
	return &Counters{
		Transform: NewCounter(TransformStart),
		Straw:     NewCounter(StrawStart),
		Pixel:     NewCounter(pixelStart),
	}
}

// Reset rewinds every counter to its base value before an independent build.
func (c *Counters) Reset() {
	c.Transform.Reset(c.Transform.Start())
	c.Straw.Reset(c.Straw.Start())
	c.Pixel.Reset(c.Pixel.Start())
}
