// Package memory is an in-memory implementation of the store contract. It is
// safe for concurrent use and suitable for tests and single-instance local
// runs; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/fsadev/suivifi/internal/store"
)

// Store keeps every collection in memory behind one mutex. Documents are
// deep-copied on the way in and out so callers can never alias internal
// state.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	versions    map[string]map[string]int64
	subs        map[*subscription]struct{}

	txMu sync.Mutex // serializes transaction bodies

	failMu     sync.Mutex
	nextBatch  error
	nextTxFail error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		versions:    make(map[string]map[string]int64),
		subs:        make(map[*subscription]struct{}),
	}
}

// FailNextBatch makes the next batch commit fail with err without applying
// anything. Test hook.
func (s *Store) FailNextBatch(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.nextBatch = err
}

// FailNextTransaction makes the next transaction fail with err after the
// transaction function ran, simulating a lost store race. Test hook.
func (s *Store) FailNextTransaction(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.nextTxFail = err
}

// Docs returns a deep copy of every document in a collection. Test hook.
func (s *Store) Docs(collection string) map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out[id] = copyDoc(doc)
	}
	return out
}

// NewID reserves a store-assigned document id.
func (s *Store) NewID(collection string) string {
	return uuid.NewString()
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return copyDoc(doc), nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.NewID(collection)
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, id, copyDoc(data))
	return nil
}

// Merge implements store.Store. Top-level fields of data are merged into the
// existing document; a missing document is created. Array transforms are
// honoured as field values, matching the remote store's set-with-merge.
func (s *Store) Merge(ctx context.Context, collection, id string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := copyDoc(s.collections[collection][id])
	if doc == nil {
		doc = make(map[string]any)
	}
	mergeInto(doc, data)
	s.setLocked(collection, id, doc)
	return nil
}

// mergeInto applies data's top-level fields onto doc, interpreting array
// transforms.
func mergeInto(doc, data map[string]any) {
	updates := make([]store.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, store.Update{Field: k, Value: v})
	}
	applyUpdates(doc, updates)
}

// Update implements store.Store. Updating a missing document fails.
func (s *Store) Update(ctx context.Context, collection, id string, updates []store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, store.ErrNotFound)
	}
	next := copyDoc(doc)
	applyUpdates(next, updates)
	s.setLocked(collection, id, next)
	return nil
}

// Delete implements store.Store. Deleting a missing document is a no-op,
// matching the remote store's semantics.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(collection, id)
	return nil
}

// setLocked stores the document and fans the change out to subscribers.
func (s *Store) setLocked(collection, id string, doc map[string]any) {
	col := s.collections[collection]
	if col == nil {
		col = make(map[string]map[string]any)
		s.collections[collection] = col
	}
	col[id] = doc
	ver := s.versions[collection]
	if ver == nil {
		ver = make(map[string]int64)
		s.versions[collection] = ver
	}
	ver[id]++
	s.notifyLocked(collection, id, doc)
}

func (s *Store) deleteLocked(collection, id string) {
	col := s.collections[collection]
	if _, ok := col[id]; !ok {
		return
	}
	delete(col, id)
	s.versions[collection][id]++
	s.notifyLocked(collection, id, nil)
}

// notifyLocked delivers one change to every subscription it concerns.
// Called with s.mu held, so per-subscription bookkeeping is race free.
func (s *Store) notifyLocked(collection, id string, doc map[string]any) {
	for sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		if ev, ok := sub.translate(id, doc); ok {
			sub.enqueue([]store.Event{ev})
		}
	}
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("subscribe: collection is required")
	}
	if len(q.In) > store.MaxInValues {
		return nil, fmt.Errorf("subscribe %s: in-predicate of %d values exceeds limit %d", q.Collection, len(q.In), store.MaxInValues)
	}
	sub := newSubscription(s, q.Collection, q, "")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	sub.enqueueInitialLocked(s.collections[q.Collection])
	return sub, nil
}

// SubscribeDoc implements store.Store.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string) (store.Subscription, error) {
	sub := newSubscription(s, collection, store.Query{Collection: collection}, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	if doc, ok := s.collections[collection][id]; ok {
		sub.seen[id] = struct{}{}
		sub.enqueue([]store.Event{{Kind: store.Added, ID: id, Data: copyDoc(doc)}})
	} else {
		// Missing document reported as Removed so the caller resets to defaults.
		sub.enqueue([]store.Event{{Kind: store.Removed, ID: id}})
	}
	return sub, nil
}

func (s *Store) removeSub(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// RunTransaction implements store.Store. Transaction bodies run serialized;
// read documents are version-checked at commit so a write that slipped in
// between surfaces as ErrConflict with nothing applied.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &transaction{store: s, readVersions: make(map[[2]string]int64)}
	if err := fn(tx); err != nil {
		return err
	}

	s.failMu.Lock()
	if s.nextTxFail != nil {
		err := s.nextTxFail
		s.nextTxFail = nil
		s.failMu.Unlock()
		return fmt.Errorf("transaction: %w: %v", store.ErrConflict, err)
	}
	s.failMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ver := range tx.readVersions {
		if s.versions[key[0]][key[1]] != ver {
			return fmt.Errorf("transaction: %s/%s changed underneath: %w", key[0], key[1], store.ErrConflict)
		}
	}
	for _, w := range tx.writes {
		w(s)
	}
	return nil
}

// Batch implements store.Store.
func (s *Store) Batch() store.WriteBatch {
	return &writeBatch{store: s}
}

// copyDoc deep-copies a document so internal state never aliases caller
// memory. Only the shapes a document can hold (maps, slices, scalars) are
// handled.
func copyDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// applyUpdates mutates doc in place according to the update list, honouring
// the array transforms.
func applyUpdates(doc map[string]any, updates []store.Update) {
	for _, u := range updates {
		switch v := u.Value.(type) {
		case store.ArrayUnionValue:
			current, _ := doc[u.Field].([]any)
			for _, add := range v.Values {
				if !containsValue(current, add) {
					current = append(current, copyValue(add))
				}
			}
			doc[u.Field] = current
		case store.ArrayRemoveValue:
			current, _ := doc[u.Field].([]any)
			kept := make([]any, 0, len(current))
			for _, existing := range current {
				if !containsValue(v.Values, existing) {
					kept = append(kept, existing)
				}
			}
			doc[u.Field] = kept
		default:
			doc[u.Field] = copyValue(u.Value)
		}
	}
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}
