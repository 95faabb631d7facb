package chat

import (
	"sync"
	"time"
)

// displayItem is one entry in the conversation transcript.
type displayItem struct {
	data any
	ts   time.Time
}

// userItem is the transcript entry for the user's own input.
type userItem struct {
	Text string
}

// itemList is the transcript store behind the viewport. The turn processor
// appends and updates items from its own goroutine, so access is locked and
// every change pokes the UI through notify.
type itemList struct {
	mu     sync.Mutex
	items  []displayItem
	notify func()
}

func newItemList(notify func()) *itemList {
	return &itemList{notify: notify}
}

// AddItem implements turn.DisplaySink.
func (l *itemList) AddItem(data any, ts time.Time) int {
	l.mu.Lock()
	l.items = append(l.items, displayItem{data: data, ts: ts})
	id := len(l.items) - 1
	l.mu.Unlock()
	l.notify()
	return id
}

// UpdateItem implements turn.DisplaySink.
func (l *itemList) UpdateItem(id int, fn func(data any) any) {
	l.mu.Lock()
	if id >= 0 && id < len(l.items) {
		l.items[id].data = fn(l.items[id].data)
	}
	l.mu.Unlock()
	l.notify()
}

// snapshot returns a copy safe to render from the UI goroutine.
func (l *itemList) snapshot() []displayItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]displayItem, len(l.items))
	copy(out, l.items)
	return out
}
