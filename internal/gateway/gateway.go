// Package gateway validates and executes every write against the backing
// store. It never mutates local state; results flow back asynchronously
// through the subscription mirrors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fsadev/suivifi/internal/config"
	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/store"
)

// CounterDoc is the shared monotonic counter generating human-facing
// transaction numbers.
const CounterDoc = "transactions_counter"

// Gateway executes mutations for one backing store.
type Gateway struct {
	st    store.Store
	paths config.Paths
	log   zerolog.Logger
	now   func() time.Time
}

// New creates a gateway.
func New(st store.Store, paths config.Paths, log zerolog.Logger) *Gateway {
	return &Gateway{
		st:    st,
		paths: paths,
		log:   log.With().Str("component", "gateway").Logger(),
		now:   time.Now,
	}
}

// CreateTransaction allocates the next operation number inside one atomic
// counter transaction, stamps creator identity and creation time, and writes
// the record. A lost counter race fails the whole create; nothing is
// written.
func (g *Gateway) CreateTransaction(ctx context.Context, user ledger.Identity, tx ledger.Transaction) (ledger.Transaction, error) {
	tx.DateReglement = ledger.NormalizeDate(tx.DateReglement, g.now())
	if err := tx.Validate(); err != nil {
		return ledger.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	numero, err := g.nextOperationNumber(ctx)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	tx.NumeroOperation = &numero
	tx.AjoutePar = user
	tx.DateAjout = g.now()
	tx.HistoriqueModifications = nil

	id, err := g.st.Add(ctx, g.paths.Transactions, tx.Doc())
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID = id
	g.log.Info().Str("id", id).Int64("numero", numero).Str("compte", tx.Compte).Msg("transaction created")
	return tx, nil
}

// nextOperationNumber performs the read-increment-write on the shared
// counter inside one atomic transaction. A missing counter document starts
// the sequence at 1.
func (g *Gateway) nextOperationNumber(ctx context.Context) (int64, error) {
	var numero int64
	err := g.st.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(g.paths.Counters, CounterDoc)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		numero = asInt64(doc["count"]) + 1
		tx.Merge(g.paths.Counters, CounterDoc, map[string]any{"count": numero})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("allocate operation number: %w", err)
	}
	return numero, nil
}

// UpdateTransaction rewrites the editable fields and appends one entry to
// the modification history with an additive list-union, so prior history is
// never overwritten. The operation number is untouched by design.
func (g *Gateway) UpdateTransaction(ctx context.Context, user ledger.Identity, id string, tx ledger.Transaction) error {
	tx.DateReglement = ledger.NormalizeDate(tx.DateReglement, g.now())
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	mod := ledger.Modification{Date: g.now(), ModifiePar: user}
	updates := []store.Update{
		{Field: "compte", Value: tx.Compte},
		{Field: "montant", Value: tx.Montant.InexactFloat64()},
		{Field: "type_operation", Value: string(tx.TypeOperation)},
		{Field: "date_reglement", Value: tx.DateReglement},
		{Field: "categorie", Value: tx.Categorie},
		{Field: "affectation", Value: tx.Affectation},
		{Field: "source_destination", Value: tx.SourceDest},
		{Field: "libelle", Value: tx.Libelle},
		{Field: "devise", Value: tx.Devise},
		{Field: "historique_modifications", Value: store.ArrayUnion(mod.Doc())},
	}
	if err := g.st.Update(ctx, g.paths.Transactions, id, updates); err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	return nil
}

// DeleteTransaction removes one record. No cascading effects.
func (g *Gateway) DeleteTransaction(ctx context.Context, id string) error {
	if err := g.st.Delete(ctx, g.paths.Transactions, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

// BulkDelete removes all ids in one atomic batch; all or nothing.
func (g *Gateway) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := g.st.Batch()
	for _, id := range ids {
		batch.Delete(g.paths.Transactions, id)
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("bulk delete %d transactions: %w", len(ids), err)
	}
	g.log.Info().Int("count", len(ids)).Msg("transactions deleted in bulk")
	return nil
}

// BulkUpdateField sets the same field to the same value across all ids in
// one atomic batch; all or nothing.
func (g *Gateway) BulkUpdateField(ctx context.Context, ids []string, field string, value any) error {
	if len(ids) == 0 {
		return nil
	}
	if field == "" {
		return fmt.Errorf("bulk update: %w: field is required", ledger.ErrValidation)
	}
	batch := g.st.Batch()
	for _, id := range ids {
		batch.Update(g.paths.Transactions, id, []store.Update{{Field: field, Value: value}})
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("bulk update %s on %d transactions: %w", field, len(ids), err)
	}
	return nil
}

// SavePermissions fully overwrites a user's permission record; admin saves
// never merge.
func (g *Gateway) SavePermissions(ctx context.Context, userID string, perms ledger.Permissions) error {
	if userID == "" {
		return fmt.Errorf("save permissions: %w: user id is required", ledger.ErrValidation)
	}
	if err := g.st.Set(ctx, g.paths.Permissions, userID, perms.Doc()); err != nil {
		return fmt.Errorf("save permissions for %s: %w", userID, err)
	}
	g.log.Info().Str("uid", userID).Msg("permissions saved")
	return nil
}

// RegisterUser provisions a first-time user: a directory entry plus an empty
// permission record. Returning users only get their photo refreshed when it
// changed.
func (g *Gateway) RegisterUser(ctx context.Context, user ledger.Identity, photoURL string) error {
	existing, err := g.st.Get(ctx, g.paths.Users, user.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		userDoc := map[string]any{
			"uid":         user.UID,
			"displayName": user.Name,
			"email":       user.Email,
			"photoURL":    photoURL,
		}
		if err := g.st.Set(ctx, g.paths.Users, user.UID, userDoc); err != nil {
			return fmt.Errorf("register user %s: %w", user.UID, err)
		}
		empty := ledger.Permissions{}
		if err := g.st.Set(ctx, g.paths.Permissions, user.UID, empty.Doc()); err != nil {
			return fmt.Errorf("register user %s: provision permissions: %w", user.UID, err)
		}
		g.log.Info().Str("uid", user.UID).Str("email", user.Email).Msg("new user provisioned")
		return nil
	case err != nil:
		return fmt.Errorf("register user %s: %w", user.UID, err)
	}

	if current, _ := existing["photoURL"].(string); current != photoURL {
		if err := g.st.Merge(ctx, g.paths.Users, user.UID, map[string]any{"photoURL": photoURL}); err != nil {
			return fmt.Errorf("register user %s: refresh photo: %w", user.UID, err)
		}
	}
	return nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}
