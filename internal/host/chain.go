package host

// Middleware decides what happens to one event before the host's own
// handling runs. When, if set, selects the events it applies to; the rest
// fall through untouched. Wrap may rewrite the event before passing it to
// next, or not call next at all.
type Middleware[E any] struct {
	Name string
	When func(e E) bool
	Wrap func(e E, next func(E) error) error
}

// Chain is an ordered list of middlewares in front of a final handler.
// The first registered middleware runs first.
type Chain[E any] struct {
	entries []*chainEntry[E]
}

type chainEntry[E any] struct {
	mw Middleware[E]
}

// Register appends mw and returns a func that removes it again.
func (c *Chain[E]) Register(mw Middleware[E]) func() {
	e := &chainEntry[E]{mw: mw}
	c.entries = append(c.entries, e)
	return func() {
		for i, cur := range c.entries {
			if cur == e {
				c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
				return
			}
		}
	}
}

func (c *Chain[E]) Len() int {
	return len(c.entries)
}

func (c *Chain[E]) Names() []string {
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.mw.Name)
	}
	return out
}

// Dispatch runs e through the chain and then final. Errors from any stage
// are returned unchanged.
func (c *Chain[E]) Dispatch(e E, final func(E) error) error {
	snapshot := append([]*chainEntry[E](nil), c.entries...)
	var call func(i int, e E) error
	call = func(i int, e E) error {
		if i == len(snapshot) {
			if final == nil {
				return nil
			}
			return final(e)
		}
		mw := snapshot[i].mw
		if mw.Wrap == nil || (mw.When != nil && !mw.When(e)) {
			return call(i+1, e)
		}
		return mw.Wrap(e, func(next E) error { return call(i+1, next) })
	}
	return call(0, e)
}
