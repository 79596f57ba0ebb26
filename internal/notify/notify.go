// Package notify carries the bare "update" signal a session publishes after
// saving, so other open sessions can reload. Delivery is fire-and-forget:
// a session that is not subscribed when the signal fires never sees it.
package notify

import (
	"context"
	"sync"
)

// UpdateMessage is the only payload ever published.
const UpdateMessage = "update"

// Channel publishes update signals to, and receives them from, other
// sessions. A channel never delivers its own publications to itself.
type Channel interface {
	Publish(ctx context.Context) error
	Subscribe(fn func()) (cancel func(), err error)
}

// Bus connects sessions living in one process.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	endpoints map[int]*Endpoint
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{endpoints: map[int]*Endpoint{}}
}

// Join returns a new endpoint attached to the bus.
func (b *Bus) Join() *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ep := &Endpoint{bus: b, id: b.nextID, subs: map[int]func(){}}
	b.endpoints[ep.id] = ep
	return ep
}

// Endpoint is one session's view of a Bus.
type Endpoint struct {
	bus *Bus
	id  int

	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// Publish calls every subscriber of every other endpoint, synchronously.
func (e *Endpoint) Publish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.bus.mu.Lock()
	var fns []func()
	for id, ep := range e.bus.endpoints {
		if id == e.id {
			continue
		}
		fns = append(fns, ep.handlers()...)
	}
	e.bus.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Subscribe registers fn until cancel is called.
func (e *Endpoint) Subscribe(fn func()) (func(), error) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}, nil
}

// Leave detaches the endpoint from the bus.
func (e *Endpoint) Leave() {
	e.bus.mu.Lock()
	delete(e.bus.endpoints, e.id)
	e.bus.mu.Unlock()
}

func (e *Endpoint) handlers() []func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		out = append(out, fn)
	}
	return out
}
