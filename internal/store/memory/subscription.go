package memory

import (
	"sync"

	"github.com/fsadev/suivifi/internal/store"
)

// subscription is one live feed. Batches are queued under a private mutex
// and drained by a dedicated pump goroutine, so notifying subscribers never
// blocks the store lock on a slow consumer.
type subscription struct {
	store      *Store
	collection string
	query      store.Query
	docID      string // non-empty for single-document subscriptions

	out    chan []store.Event
	notify chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending [][]store.Event
	seen    map[string]struct{} // ids currently matching, guarded by store.mu

	stopOnce sync.Once
	err      error
}

func newSubscription(s *Store, collection string, q store.Query, docID string) *subscription {
	sub := &subscription{
		store:      s,
		collection: collection,
		query:      q,
		docID:      docID,
		out:        make(chan []store.Event, 16),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		seen:       make(map[string]struct{}),
	}
	go sub.pump()
	return sub
}

// Events implements store.Subscription.
func (sub *subscription) Events() <-chan []store.Event { return sub.out }

// Err implements store.Subscription.
func (sub *subscription) Err() error { return sub.err }

// Stop implements store.Subscription. Safe to call repeatedly.
func (sub *subscription) Stop() {
	sub.stopOnce.Do(func() {
		sub.store.removeSub(sub)
		close(sub.done)
	})
}

// pump moves queued batches onto the out channel in order.
func (sub *subscription) pump() {
	defer close(sub.out)
	for {
		select {
		case <-sub.done:
			return
		case <-sub.notify:
		}
		for {
			sub.mu.Lock()
			if len(sub.pending) == 0 {
				sub.mu.Unlock()
				break
			}
			batch := sub.pending[0]
			sub.pending = sub.pending[1:]
			sub.mu.Unlock()

			select {
			case sub.out <- batch:
			case <-sub.done:
				return
			}
		}
	}
}

func (sub *subscription) enqueue(batch []store.Event) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, batch)
	sub.mu.Unlock()
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// enqueueInitialLocked delivers the current matching documents as one Added
// batch. Called with the store lock held.
func (sub *subscription) enqueueInitialLocked(col map[string]map[string]any) {
	batch := make([]store.Event, 0, len(col))
	for id, doc := range col {
		if !sub.matches(doc) {
			continue
		}
		sub.seen[id] = struct{}{}
		batch = append(batch, store.Event{Kind: store.Added, ID: id, Data: copyDoc(doc)})
	}
	sub.enqueue(batch)
}

// matches reports whether a document satisfies the query predicate.
func (sub *subscription) matches(doc map[string]any) bool {
	if sub.query.Field == "" {
		return true
	}
	value, _ := doc[sub.query.Field].(string)
	for _, want := range sub.query.In {
		if value == want {
			return true
		}
	}
	return false
}

// translate turns one document change into the event this subscription
// should see, if any. A document leaving the predicate is reported as
// Removed; one entering it as Added. Called with the store lock held.
func (sub *subscription) translate(id string, doc map[string]any) (store.Event, bool) {
	if sub.docID != "" {
		if id != sub.docID {
			return store.Event{}, false
		}
		if doc == nil {
			delete(sub.seen, id)
			return store.Event{Kind: store.Removed, ID: id}, true
		}
		kind := store.Modified
		if _, had := sub.seen[id]; !had {
			kind = store.Added
			sub.seen[id] = struct{}{}
		}
		return store.Event{Kind: kind, ID: id, Data: copyDoc(doc)}, true
	}

	_, had := sub.seen[id]
	matchNow := doc != nil && sub.matches(doc)
	switch {
	case had && !matchNow:
		delete(sub.seen, id)
		return store.Event{Kind: store.Removed, ID: id}, true
	case !had && matchNow:
		sub.seen[id] = struct{}{}
		return store.Event{Kind: store.Added, ID: id, Data: copyDoc(doc)}, true
	case had && matchNow:
		return store.Event{Kind: store.Modified, ID: id, Data: copyDoc(doc)}, true
	}
	return store.Event{}, false
}

var _ store.Subscription = (*subscription)(nil)
