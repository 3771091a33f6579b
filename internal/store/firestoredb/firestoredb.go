// Package firestoredb binds the store contract to Cloud Firestore: query and
// document snapshot listeners become subscriptions, RunTransaction maps to
// Firestore's optimistic transactions and Batch to its atomic write batches.
package firestoredb

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fsadev/suivifi/internal/store"
)

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

// New connects to Firestore for the given project. Credentials resolution
// follows the usual application-default chain unless a credentials file is
// given.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestoredb: new client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// NewID implements store.Store.
func (s *Store) NewID(collection string) string {
	return s.client.Collection(collection).NewDoc().ID
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, mapErr(err))
	}
	return snap.Data(), nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toFirestoreData(data))
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, mapErr(err))
	}
	return ref.ID, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestoreData(data)); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

// Merge implements store.Store.
func (s *Store) Merge(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestoreData(data), firestore.MergeAll); err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, updates []store.Update) error {
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, toFirestoreUpdates(updates)); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	if len(q.In) > store.MaxInValues {
		return nil, fmt.Errorf("subscribe %s: in-predicate of %d values exceeds limit %d", q.Collection, len(q.In), store.MaxInValues)
	}
	query := s.client.Collection(q.Collection).Query
	if q.Field != "" {
		query = query.Where(q.Field, "in", q.In)
	}
	iter := query.Snapshots(ctx)
	sub := newSubscription(iter.Stop)
	go sub.pumpQuery(iter)
	return sub, nil
}

// SubscribeDoc implements store.Store.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string) (store.Subscription, error) {
	iter := s.client.Collection(collection).Doc(id).Snapshots(ctx)
	sub := newSubscription(iter.Stop)
	go sub.pumpDoc(iter)
	return sub, nil
}

// RunTransaction implements store.Store. Firestore retries contended
// transactions internally; an exhausted retry budget surfaces as ErrConflict.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(&transaction{client: s.client, tx: ftx})
	})
	if err != nil {
		return fmt.Errorf("transaction: %w", mapErr(err))
	}
	return nil
}

// Batch implements store.Store.
func (s *Store) Batch() store.WriteBatch {
	return &writeBatch{client: s.client, batch: s.client.Batch()}
}

type transaction struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *transaction) Get(collection, id string) (map[string]any, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, fmt.Errorf("tx get %s/%s: %w", collection, id, mapErr(err))
	}
	return snap.Data(), nil
}

func (t *transaction) Set(collection, id string, data map[string]any) {
	_ = t.tx.Set(t.client.Collection(collection).Doc(id), toFirestoreData(data))
}

func (t *transaction) Merge(collection, id string, data map[string]any) {
	_ = t.tx.Set(t.client.Collection(collection).Doc(id), toFirestoreData(data), firestore.MergeAll)
}

func (t *transaction) Update(collection, id string, updates []store.Update) {
	_ = t.tx.Update(t.client.Collection(collection).Doc(id), toFirestoreUpdates(updates))
}

type writeBatch struct {
	client *firestore.Client
	mu     sync.Mutex
	batch  *firestore.WriteBatch
}

func (b *writeBatch) Set(collection, id string, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batch.Set(b.client.Collection(collection).Doc(id), toFirestoreData(data))
}

func (b *writeBatch) Update(collection, id string, updates []store.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batch.Update(b.client.Collection(collection).Doc(id), toFirestoreUpdates(updates))
}

func (b *writeBatch) Delete(collection, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batch.Delete(b.client.Collection(collection).Doc(id))
}

func (b *writeBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.batch.Commit(ctx); err != nil {
		return fmt.Errorf("batch commit: %w", mapErr(err))
	}
	return nil
}

// toFirestoreData rewrites top-level array transforms into their Firestore
// counterparts so Set-with-merge behaves like the contract promises.
func toFirestoreData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case store.ArrayUnionValue:
			out[k] = firestore.ArrayUnion(t.Values...)
		case store.ArrayRemoveValue:
			out[k] = firestore.ArrayRemove(t.Values...)
		default:
			out[k] = v
		}
	}
	return out
}

func toFirestoreUpdates(updates []store.Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		value := u.Value
		switch v := u.Value.(type) {
		case store.ArrayUnionValue:
			value = firestore.ArrayUnion(v.Values...)
		case store.ArrayRemoveValue:
			value = firestore.ArrayRemove(v.Values...)
		}
		out = append(out, firestore.Update{Path: u.Field, Value: value})
	}
	return out
}

// mapErr rewrites grpc status codes into the store's failure classes so
// callers can match with errors.Is without importing grpc.
func mapErr(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case codes.Aborted, codes.FailedPrecondition, codes.AlreadyExists:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	default:
		return err
	}
}

var _ store.Store = (*Store)(nil)
