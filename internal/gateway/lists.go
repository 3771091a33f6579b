package gateway

import (
	"context"
	"fmt"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/store"
)

// AddAccount appends a structured account to the shared account list with an
// additive set-union; re-adding the exact same account is a no-op.
func (g *Gateway) AddAccount(ctx context.Context, a ledger.Account) error {
	if a.Name == "" {
		return fmt.Errorf("add account: %w: name is required", ledger.ErrValidation)
	}
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	err := g.st.Merge(ctx, g.paths.Options, ledger.ListComptes, map[string]any{
		"values": store.ArrayUnion(a.Doc()),
	})
	if err != nil {
		return fmt.Errorf("add account %s: %w", a.Name, err)
	}
	return nil
}

// EditAccount replaces one account entry inside a transaction so a
// concurrent edit of the list cannot be lost. Renaming onto an existing
// name fails with ErrConflict; a vanished original fails with ErrNotFound.
// Either failure leaves the list exactly as it was.
func (g *Gateway) EditAccount(ctx context.Context, original string, updated ledger.Account) error {
	if original == "" || updated.Name == "" {
		return fmt.Errorf("edit account: %w: account name is required", ledger.ErrValidation)
	}
	err := g.st.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(g.paths.Options, ledger.ListComptes)
		if err != nil {
			return err
		}
		var lists ledger.OptionLists
		lists.DecodeOptionList(ledger.ListComptes, doc)

		idx := -1
		for i, a := range lists.Comptes {
			if a.Name == original {
				idx = i
			} else if a.Name == updated.Name {
				return fmt.Errorf("account %q already exists: %w", updated.Name, ledger.ErrConflict)
			}
		}
		if idx < 0 {
			return fmt.Errorf("account %q: %w", original, ledger.ErrNotFound)
		}
		lists.Comptes[idx] = updated

		values := make([]any, 0, len(lists.Comptes))
		for _, a := range lists.Comptes {
			values = append(values, a.Doc())
		}
		tx.Set(g.paths.Options, ledger.ListComptes, map[string]any{"values": values})
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit account %s: %w", original, err)
	}
	g.log.Info().Str("from", original).Str("to", updated.Name).Msg("account edited")
	return nil
}

// AddListItem adds one value to a plain option list (categories or
// affectations). Duplicates are silently absorbed by the set-union.
func (g *Gateway) AddListItem(ctx context.Context, list, value string) error {
	if value == "" {
		return fmt.Errorf("add list item: %w: value is required", ledger.ErrValidation)
	}
	err := g.st.Merge(ctx, g.paths.Options, list, map[string]any{
		"values": store.ArrayUnion(value),
	})
	if err != nil {
		return fmt.Errorf("add item to %s: %w", list, err)
	}
	return nil
}

// BulkAddListItems adds several values in one write.
func (g *Gateway) BulkAddListItems(ctx context.Context, list string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	items := make([]any, 0, len(values))
	for _, v := range values {
		if v != "" {
			items = append(items, v)
		}
	}
	if len(items) == 0 {
		return nil
	}
	err := g.st.Merge(ctx, g.paths.Options, list, map[string]any{
		"values": store.ArrayUnion(items...),
	})
	if err != nil {
		return fmt.Errorf("bulk add %d items to %s: %w", len(items), list, err)
	}
	return nil
}

// RemoveListItem removes a value from an option list by identity; value may
// be a scalar string or an account document for the structured list.
func (g *Gateway) RemoveListItem(ctx context.Context, list string, value any) error {
	updates := []store.Update{{Field: "values", Value: store.ArrayRemove(value)}}
	if err := g.st.Update(ctx, g.paths.Options, list, updates); err != nil {
		return fmt.Errorf("remove item from %s: %w", list, err)
	}
	return nil
}

// RemoveAccount removes an account entry by full value.
func (g *Gateway) RemoveAccount(ctx context.Context, a ledger.Account) error {
	if err := g.RemoveListItem(ctx, ledger.ListComptes, a.Doc()); err != nil {
		return fmt.Errorf("remove account %s: %w", a.Name, err)
	}
	return nil
}
