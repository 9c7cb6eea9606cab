// package keys dispatches process-wide keyboard shortcuts
package keys

import (
	"sync"
)

const (
	// Space toggles playback unless an editable control has focus.
	Space = " "
	// Search moves focus to the search input.
	Search = "/"
)

// View is the part of the current screen the dispatcher may act on.
type View interface {
	// FocusSearch focuses the view's search input, reporting false when it has none.
	FocusSearch() bool
}

// Event is a key press as seen by the whole application.
type Event struct {
	Key string
	// Editing is set when focus is inside an editable text control.
	Editing bool
	View    View
}

// Handler reacts to a key press and reports whether it consumed it.
// A consumed key must not reach the focused control.
type Handler func(Event) bool

// Bus fans key events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	next     int
}

func NewBus() *Bus {
	return &Bus{handlers: map[int]Handler{}}
}

// Subscribe registers h and returns the func that removes it. Calling the returned func more than once is safe.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every handler in subscription order and reports whether any consumed it.
func (b *Bus) Publish(ev Event) bool {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.handlers[id])
	}
	b.mu.RUnlock()

	handled := false
	for _, h := range hs {
		if h(ev) {
			handled = true
		}
	}
	return handled
}

// Len returns the number of subscribed handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Toggler is the playback operation bound to [Space].
type Toggler interface {
	TogglePlayPause()
}

// Dispatcher returns the global shortcut handler for p.
func Dispatcher(p Toggler) Handler {
	return func(ev Event) bool {
		switch ev.Key {
		case Space:
			if ev.Editing {
				return false
			}
			p.TogglePlayPause()
			return true
		case Search:
			if ev.View != nil {
				ev.View.FocusSearch()
			}
			return true
		default:
			return false
		}
	}
}
