package events

import "sync"

// Signal is a control-channel instruction keyed by transfer name.
type Signal string

const (
	SignalPause  Signal = "pause"
	SignalCancel Signal = "cancel"
	SignalResume Signal = "resume"
)

// ControlChannel fans pause/cancel/resume signals out to whichever
// goroutine is currently running the named Transfer. Subscribers register
// with Watch and must call the returned cancel func when done.
type ControlChannel struct {
	mu   sync.Mutex
	subs map[string][]chan Signal
}

// NewControlChannel constructs an empty ControlChannel.
func NewControlChannel() *ControlChannel {
	return &ControlChannel{subs: make(map[string][]chan Signal)}
}

// Watch registers a buffered subscriber for name and returns it along with
// an unsubscribe function.
func (c *ControlChannel) Watch(name string) (<-chan Signal, func()) {
	ch := make(chan Signal, 4)
	c.mu.Lock()
	c.subs[name] = append(c.subs[name], ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.subs[name]
		for i, s := range subs {
			if s == ch {
				c.subs[name] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(c.subs[name]) == 0 {
			delete(c.subs, name)
		}
		close(ch)
	}
	return ch, cancel
}

// Send delivers signal to every current subscriber of name. Non-blocking:
// a subscriber whose buffer is full misses the signal rather than stalling
// the sender.
func (c *ControlChannel) Send(name string, signal Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs[name] {
		select {
		case ch <- signal:
		default:
		}
	}
}
