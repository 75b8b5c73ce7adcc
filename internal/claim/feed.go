package claim

import "sync"

// Feed fans committed registry events out to subscribers. Delivery is
// best-effort: a subscriber that stops draining loses events rather than
// blocking the registry, and recovers by re-running a backfill.
type Feed struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe registers a buffered subscription. The returned cancel func
// removes the subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan Event, buffer)
	f.subs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
}

// Publish delivers events to every subscriber without blocking.
func (f *Feed) Publish(evs ...Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range evs {
		for _, ch := range f.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
