package stepper

// Handle identifies a pending frame request.
type Handle uint64

// Scheduler is the host's per-frame callback capability. Requests are
// one-shot: a callback that wants the next frame must request it again.
type Scheduler interface {
	Request(fn func(now float64)) Handle
	Cancel(h Handle)
}

// Clock reports monotonically increasing wall-clock time in milliseconds.
type Clock func() float64

// FrameQueue is a Scheduler driven by an external loop calling Fire once per
// frame. Callbacks requested while Fire runs wait for the next Fire.
type FrameQueue struct {
	next    Handle
	pending []request
}

type request struct {
	h  Handle
	fn func(now float64)
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

func (q *FrameQueue) Request(fn func(now float64)) Handle {
	q.next++
	q.pending = append(q.pending, request{h: q.next, fn: fn})
	return q.next
}

func (q *FrameQueue) Cancel(h Handle) {
	for i, r := range q.pending {
		if r.h == h {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Fire runs every callback pending at the time of the call.
func (q *FrameQueue) Fire(now float64) {
	due := q.pending
	q.pending = nil
	for _, r := range due {
		r.fn(now)
	}
}

// Len reports how many callbacks wait for the next frame.
func (q *FrameQueue) Len() int {
	return len(q.pending)
}
