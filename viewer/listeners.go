package viewer

import "sync"

// ResizeListeners is the subscriber list behind a Host's OnResize. Hosts
// embed it and call Notify when their window changes size. The zero value
// is ready to use.
type ResizeListeners struct {
	mu   sync.Mutex
	next int
	subs []resizeSub
}

type resizeSub struct {
	id int
	fn func()
}

// OnResize adds fn and returns the function removing it. Removing twice is
// harmless.
func (l *ResizeListeners) OnResize(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.next
	l.next++
	l.subs = append(l.subs, resizeSub{id, fn})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.subs {
			if sub.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every listener in subscription order. Listeners run without
// the lock held, so they may subscribe or unsubscribe.
func (l *ResizeListeners) Notify() {
	l.mu.Lock()
	fns := make([]func(), len(l.subs))
	for i, sub := range l.subs {
		fns[i] = sub.fn
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Len reports the number of listeners.
func (l *ResizeListeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}
