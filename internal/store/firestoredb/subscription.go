package firestoredb

import (
	"sync"

	"cloud.google.com/go/firestore"

	"github.com/fsadev/suivifi/internal/store"
)

// subscription adapts a Firestore snapshot iterator to the store contract.
// The pump goroutine owns the iterator and is the only sender on out.
type subscription struct {
	out  chan []store.Event
	done chan struct{}

	stopOnce sync.Once
	stop     func()

	errMu sync.Mutex
	err   error
}

func newSubscription(stop func()) *subscription {
	return &subscription{
		out:  make(chan []store.Event, 16),
		done: make(chan struct{}),
		stop: stop,
	}
}

// Events implements store.Subscription.
func (sub *subscription) Events() <-chan []store.Event { return sub.out }

// Err implements store.Subscription.
func (sub *subscription) Err() error {
	sub.errMu.Lock()
	defer sub.errMu.Unlock()
	return sub.err
}

// Stop implements store.Subscription.
func (sub *subscription) Stop() {
	sub.stopOnce.Do(func() {
		close(sub.done)
		if sub.stop != nil {
			sub.stop()
		}
	})
}

func (sub *subscription) fail(err error) {
	sub.errMu.Lock()
	sub.err = err
	sub.errMu.Unlock()
}

func (sub *subscription) send(batch []store.Event) bool {
	select {
	case sub.out <- batch:
		return true
	case <-sub.done:
		return false
	}
}

func (sub *subscription) pumpQuery(iter *firestore.QuerySnapshotIterator) {
	defer close(sub.out)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			sub.fail(err)
			return
		}
		batch := make([]store.Event, 0, len(snap.Changes))
		for _, change := range snap.Changes {
			ev := store.Event{ID: change.Doc.Ref.ID}
			switch change.Kind {
			case firestore.DocumentAdded:
				ev.Kind = store.Added
				ev.Data = change.Doc.Data()
			case firestore.DocumentModified:
				ev.Kind = store.Modified
				ev.Data = change.Doc.Data()
			case firestore.DocumentRemoved:
				ev.Kind = store.Removed
			}
			batch = append(batch, ev)
		}
		if !sub.send(batch) {
			return
		}
	}
}

func (sub *subscription) pumpDoc(iter *firestore.DocumentSnapshotIterator) {
	defer close(sub.out)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			sub.fail(err)
			return
		}
		ev := store.Event{ID: snap.Ref.ID, Kind: store.Removed}
		if snap.Exists() {
			ev.Kind = store.Modified
			ev.Data = snap.Data()
		}
		if !sub.send([]store.Event{ev}) {
			return
		}
	}
}

var _ store.Subscription = (*subscription)(nil)
