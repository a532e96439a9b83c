// Package events provides the viewer's notification bus.
//
// Delivery is synchronous and in subscription order: everything runs on the
// update loop, so a handler observes state exactly as the publisher left it.
package events

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Type identifies a notification or command.
type Type string

// AR notifications.
const (
	AROnStart     Type = "ar:onStart"
	AROnEnd       Type = "ar:onEnd"
	AROnTracking  Type = "ar:onTracking"
	ARHit         Type = "ar:hit"
	ARHitStart    Type = "ar:hit:start"
	ARHitNotFound Type = "ar:hit:notfound"
	ARHitDisabled Type = "ar:hit:disabled"
)

// AR commands.
const (
	ARRequestStart Type = "ar:request:start"
	ARRequestEnd   Type = "ar:request:end"
)

// Overlay notifications.
const (
	OverlayReloaded Type = "overlay:reloaded"
	OverlaySelected Type = "overlay:selected"
)

// Event is a bus message. Fields beyond Type are set only by the
// notifications that carry them.
type Event struct {
	Type      Type
	SessionID string
	Position  mgl64.Vec3
	Rotation  mgl64.Quat
	Index     int
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id int
	h  Handler
}

// Bus is a typed publish/subscribe hub. It is not safe for concurrent use.
type Bus struct {
	next     int
	handlers map[Type][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]subscription)}
}

// Subscribe registers h for t and returns a function that removes it.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.next++
	id := b.next
	b.handlers[t] = append(b.handlers[t], subscription{id: id, h: h})
	return func() { b.remove(t, id) }
}

// SubscribeMultiple registers h for each type.
func (b *Bus) SubscribeMultiple(types []Type, h Handler) (unsubscribe func()) {
	var offs []func()
	for _, t := range types {
		offs = append(offs, b.Subscribe(t, h))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Once registers h to run for the next event of type t only.
func (b *Bus) Once(t Type, h Handler) {
	var off func()
	off = b.Subscribe(t, func(e Event) {
		off()
		h(e)
	})
}

func (b *Bus) remove(t Type, id int) {
	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			out = append(out, subs[i+1:]...)
			b.handlers[t] = out
			return
		}
	}
}

// Publish delivers e to every handler registered for e.Type at call time.
func (b *Bus) Publish(e Event) {
	subs := b.handlers[e.Type]
	if len(subs) == 0 {
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		s.h(e)
	}
}

// Fire publishes an event carrying only its type.
func (b *Bus) Fire(t Type) {
	b.Publish(Event{Type: t})
}

// Clear removes all handlers.
func (b *Bus) Clear() {
	b.handlers = make(map[Type][]subscription)
}
