// Package chain implements the "chained" containers the transactional
// match engine layers state on top of (spec §4.2): a map, a stack, and a
// counter whose top frame is pushed on transaction begin and popped (with
// rollback) on failure.
//
// All three keep a pushed frame in place permanently once its owning
// transaction commits (spec §9 Open Question (i): this implementation
// keeps the "reads always walk all frames" variant) — a frame is only ever
// removed by Pop*, which is scheduled as a rollback compensation and
// forwarded up the transaction tree on commit rather than run immediately.
package chain

// Map layers key/value frames, most-recently-pushed first. Reads check the
// top frame down to the bottom; writes always go to the top frame.
type Map[K comparable, V any] struct {
	frames []map[K]V
}

// NewMap returns a Map with a single base frame.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{frames: []map[K]V{make(map[K]V)}}
}

// PushMap pushes a fresh empty frame and returns it. PopMap does not check
// which frame it removes.
func (m *Map[K, V]) PushMap() map[K]V {
	f := make(map[K]V)
	m.frames = append(m.frames, f)
	return f
}

// PopMap discards the top frame entirely.
func (m *Map[K, V]) PopMap() {
	m.frames = m.frames[:len(m.frames)-1]
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if v, ok := m.frames[i][key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (m *Map[K, V]) Set(key K, val V) {
	m.frames[len(m.frames)-1][key] = val
}

func (m *Map[K, V]) Delete(key K) {
	delete(m.frames[len(m.frames)-1], key)
}

// Snapshot merges every frame into one map, bottom to top, so a later
// frame's entry for a key wins (matching Get's top-first precedence).
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V)
	for _, f := range m.frames {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

// Stack partitions a stack across layered sub-stacks; push/pop operate on
// the top sub-stack, but iteration and indexing walk all of them in order.
type Stack[V any] struct {
	subs [][]V
}

func NewStack[V any]() *Stack[V] {
	return &Stack[V]{subs: [][]V{{}}}
}

func (s *Stack[V]) Len() int {
	n := 0
	for _, sub := range s.subs {
		n += len(sub)
	}
	return n
}

func (s *Stack[V]) Push(v V) {
	top := len(s.subs) - 1
	s.subs[top] = append(s.subs[top], v)
}

func (s *Stack[V]) Pop() V {
	top := len(s.subs) - 1
	sub := s.subs[top]
	v := sub[len(sub)-1]
	s.subs[top] = sub[:len(sub)-1]
	return v
}

// PushStack pushes a fresh empty sub-stack frame.
func (s *Stack[V]) PushStack() []V {
	s.subs = append(s.subs, nil)
	return s.subs[len(s.subs)-1]
}

// PopStack discards the top sub-stack frame: whatever was pushed onto it
// during the transaction disappears.
func (s *Stack[V]) PopStack() []V {
	n := len(s.subs)
	top := s.subs[n-1]
	s.subs = s.subs[:n-1]
	return top
}

// All returns every element across every sub-stack, in frame order.
func (s *Stack[V]) All() []V {
	var out []V
	for _, sub := range s.subs {
		out = append(out, sub...)
	}
	return out
}

// Counter is a stacked integer counter; pushing a frame inherits the
// current value so reads are unaffected until the frame is mutated.
type Counter struct {
	counts []int
}

func NewCounter() *Counter {
	return &Counter{counts: []int{0}}
}

func (c *Counter) Value() int { return c.counts[len(c.counts)-1] }

func (c *Counter) Set(v int) int {
	c.counts[len(c.counts)-1] = v
	return v
}

func (c *Counter) Inc() int { return c.Set(c.Value() + 1) }
func (c *Counter) Dec() int { return c.Set(c.Value() - 1) }

// PushCounter pushes a new frame inheriting the current value.
func (c *Counter) PushCounter() {
	c.counts = append(c.counts, c.Value())
}

// PopCounter discards the top frame, reverting to the value beneath it.
func (c *Counter) PopCounter() {
	c.counts = c.counts[:len(c.counts)-1]
}
