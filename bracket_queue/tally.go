package bracket_queue

// CaptureTally counts the outstanding and failed brackets of one sequence.
// It is owned by the goroutine draining the sequence's events.
type CaptureTally struct {
	total     int
	remaining int
	failed    int
}

func NewCaptureTally(total int) CaptureTally {
	return CaptureTally{total: total, remaining: total}
}

// Record accounts for one arrival and reports whether it completed the
// sequence. Arrivals after completion are ignored.
func (t *CaptureTally) Record(ok bool) bool {
	if t.remaining == 0 {
		return false
	}
	t.remaining--
	if !ok {
		t.failed++
	}
	return t.remaining == 0
}

func (t CaptureTally) Total() int     { return t.total }
func (t CaptureTally) Remaining() int { return t.remaining }
func (t CaptureTally) Failed() int    { return t.failed }
func (t CaptureTally) Completed() int { return t.total - t.remaining }
func (t CaptureTally) Complete() bool { return t.remaining == 0 }
