// Package store defines the document-store contract the rest of the module
// is written against: live query subscriptions delivering incremental change
// batches, atomic single-document transactions, and all-or-nothing batched
// writes. The memory subpackage implements it for tests and local runs; the
// firestoredb subpackage binds it to Cloud Firestore.
package store

import (
	"context"
	"errors"
)

// MaxInValues is the store's maximum set-membership predicate size. Queries
// with a larger In list must be fanned out into chunks by the caller.
const MaxInValues = 10

// EventKind classifies one incremental change.
type EventKind int

const (
	Added EventKind = iota
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one change to one document. Data carries the full document for
// Added and Modified and is nil for Removed.
type Event struct {
	Kind EventKind
	ID   string
	Data map[string]any
}

// Query selects a collection, optionally narrowed by a set-membership
// predicate on one field. A zero Field means the whole collection.
type Query struct {
	Collection string
	Field      string
	In         []string
}

// Subscription is a live mirror feed. Events delivers change batches in
// store order until Stop is called or the subscription fails; after the
// channel closes Err reports the failure, if any. Stop is idempotent.
type Subscription interface {
	Events() <-chan []Event
	Err() error
	Stop()
}

// Update names one field to change. Value may be a plain value or one of the
// ArrayUnion / ArrayRemove transforms.
type Update struct {
	Field string
	Value any
}

// ArrayUnionValue requests a set-union merge into an array field: values
// already present are silently absorbed.
type ArrayUnionValue struct{ Values []any }

// ArrayRemoveValue requests a set-difference removal from an array field,
// comparing elements by full value.
type ArrayRemoveValue struct{ Values []any }

// ArrayUnion builds an array-union transform.
func ArrayUnion(values ...any) ArrayUnionValue { return ArrayUnionValue{Values: values} }

// ArrayRemove builds an array-remove transform.
func ArrayRemove(values ...any) ArrayRemoveValue { return ArrayRemoveValue{Values: values} }

// Tx is the handle passed to a transaction function. Reads must precede
// writes; writes are buffered and applied atomically iff the function
// returns nil and no read document changed underneath.
type Tx interface {
	Get(collection, id string) (map[string]any, error)
	Set(collection, id string, data map[string]any)
	Merge(collection, id string, data map[string]any)
	Update(collection, id string, updates []Update)
}

// WriteBatch accumulates writes committed atomically: either every staged
// write applies or none does.
type WriteBatch interface {
	Set(collection, id string, data map[string]any)
	Update(collection, id string, updates []Update)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// Store is the backing document store.
type Store interface {
	// NewID reserves a store-assigned document id without writing anything.
	NewID(collection string) string

	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Merge(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error

	// Subscribe opens a live query. The initial state arrives as Added events.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	// SubscribeDoc watches a single document; a missing document is reported
	// as a Removed event so callers can reset to defaults.
	SubscribeDoc(ctx context.Context, collection, id string) (Subscription, error)

	// RunTransaction executes fn atomically with compare-and-set semantics.
	// A lost race surfaces as ErrConflict; nothing is retried here.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	Batch() WriteBatch
}

// Failure classes surfaced by implementations.
var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("transaction conflict")
	ErrClosed   = errors.New("store closed")
)
