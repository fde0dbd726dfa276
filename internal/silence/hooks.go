package silence

// Hooks receives progress notifications. Any field may be nil.
type Hooks struct {
	// FramesTotal is called once when an operation starts.
	FramesTotal func(total int)
	// CurrentFrame is called at rate-limited intervals while scanning.
	CurrentFrame func(pos int)
	// Done is called once when an operation ends, whatever its outcome.
	Done func()
}

// NotifyTotal emits FramesTotal.
func (h Hooks) NotifyTotal(total int) {
	if h.FramesTotal != nil {
		h.FramesTotal(total)
	}
}

// NotifyFrame emits CurrentFrame.
func (h Hooks) NotifyFrame(pos int) {
	if h.CurrentFrame != nil {
		h.CurrentFrame(pos)
	}
}

// NotifyDone emits Done.
func (h Hooks) NotifyDone() {
	if h.Done != nil {
		h.Done()
	}
}

// progress rate-limits CurrentFrame to roughly one call per percent of the stream.
type progress struct {
	hooks Hooks
	step  int
	last  int
}

func newProgress(hooks Hooks, total, start int) *progress {
	return &progress{hooks: hooks, step: total / 100, last: start}
}

func (p *progress) update(pos int) {
	if pos-p.last > p.step {
		p.hooks.NotifyFrame(pos)
		p.last = pos
	}
}
