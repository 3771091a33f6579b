package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsadev/suivifi/internal/store"
)

// transaction buffers writes while recording the version of every document
// read, giving compare-and-set semantics at commit time.
type transaction struct {
	store        *Store
	readVersions map[[2]string]int64
	writes       []func(*Store)
}

// Get implements store.Tx.
func (tx *transaction) Get(collection, id string) (map[string]any, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	tx.readVersions[[2]string{collection, id}] = tx.store.versions[collection][id]
	doc, ok := tx.store.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("tx get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return copyDoc(doc), nil
}

// Set implements store.Tx.
func (tx *transaction) Set(collection, id string, data map[string]any) {
	doc := copyDoc(data)
	tx.writes = append(tx.writes, func(s *Store) { s.setLocked(collection, id, doc) })
}

// Merge implements store.Tx.
func (tx *transaction) Merge(collection, id string, data map[string]any) {
	patch := copyDoc(data)
	tx.writes = append(tx.writes, func(s *Store) {
		doc := copyDoc(s.collections[collection][id])
		if doc == nil {
			doc = make(map[string]any)
		}
		mergeInto(doc, patch)
		s.setLocked(collection, id, doc)
	})
}

// Update implements store.Tx.
func (tx *transaction) Update(collection, id string, updates []store.Update) {
	tx.writes = append(tx.writes, func(s *Store) {
		doc := copyDoc(s.collections[collection][id])
		if doc == nil {
			doc = make(map[string]any)
		}
		applyUpdates(doc, updates)
		s.setLocked(collection, id, doc)
	})
}

var _ store.Tx = (*transaction)(nil)

// writeBatch stages writes applied all-or-nothing under one store lock.
type writeBatch struct {
	store *Store

	mu  sync.Mutex
	ops []batchOp
}

type batchOp struct {
	kind       string // set, update, delete
	collection string
	id         string
	data       map[string]any
	updates    []store.Update
}

// Set implements store.WriteBatch.
func (b *writeBatch) Set(collection, id string, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, batchOp{kind: "set", collection: collection, id: id, data: copyDoc(data)})
}

// Update implements store.WriteBatch.
func (b *writeBatch) Update(collection, id string, updates []store.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, batchOp{kind: "update", collection: collection, id: id, updates: updates})
}

// Delete implements store.WriteBatch.
func (b *writeBatch) Delete(collection, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, batchOp{kind: "delete", collection: collection, id: id})
}

// Commit implements store.WriteBatch. Every staged write is validated before
// any is applied, so a bad op (or an injected failure) leaves the store
// untouched.
func (b *writeBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	ops := b.ops
	b.ops = nil
	b.mu.Unlock()

	s := b.store
	s.failMu.Lock()
	if s.nextBatch != nil {
		err := s.nextBatch
		s.nextBatch = nil
		s.failMu.Unlock()
		return fmt.Errorf("batch commit: %w", err)
	}
	s.failMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if op.kind == "update" {
			if _, ok := s.collections[op.collection][op.id]; !ok {
				return fmt.Errorf("batch commit: update %s/%s: %w", op.collection, op.id, store.ErrNotFound)
			}
		}
	}
	for _, op := range ops {
		switch op.kind {
		case "set":
			s.setLocked(op.collection, op.id, op.data)
		case "update":
			doc := copyDoc(s.collections[op.collection][op.id])
			applyUpdates(doc, op.updates)
			s.setLocked(op.collection, op.id, doc)
		case "delete":
			s.deleteLocked(op.collection, op.id)
		}
	}
	return nil
}

var _ store.WriteBatch = (*writeBatch)(nil)
var _ store.Store = (*Store)(nil)
