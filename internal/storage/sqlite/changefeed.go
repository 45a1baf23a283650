package sqlite

import (
	"sync"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

const subscriberBuffer = 64

// Feed fans store change events out to per-table subscribers. Publishing
// never blocks; a subscriber whose buffer is full misses the event.
type Feed struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan models.ChangeEvent
	nextID int
	closed bool
}

var _ interfaces.ChangeFeed = (*Feed)(nil)

// NewFeed creates an empty change feed
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[int]chan models.ChangeEvent)}
}

// Subscribe registers for events on table. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (f *Feed) Subscribe(table string) (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent, subscriberBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	if f.subs[table] == nil {
		f.subs[table] = make(map[int]chan models.ChangeEvent)
	}
	f.subs[table][id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[table][id]; ok {
				delete(f.subs[table], id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ev.Table
func (f *Feed) Publish(ev models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[ev.Table] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for table, subs := range f.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(f.subs, table)
	}
}
