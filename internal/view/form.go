package view

import (
	"github.com/fsadev/suivifi/internal/mirror"
	"github.com/fsadev/suivifi/internal/perm"
)

// FormOptions are the choices offered by the transaction entry form. Unlike
// the read-side facets these are write-filtered: a non-admin only sees the
// accounts they can modify and the category/allocation values they were
// granted.
type FormOptions struct {
	Accounts     []string
	Categories   []string
	Affectations []string
}

// ComputeFormOptions derives the entry-form choices for the caller.
func ComputeFormOptions(snap mirror.Snapshot, isAdmin bool) FormOptions {
	return FormOptions{
		Accounts:     perm.WritableAccounts(snap.Permissions, isAdmin, snap.Options.Comptes),
		Categories:   perm.CategoryOptions(snap.Permissions, isAdmin, snap.Options.Categories),
		Affectations: perm.AffectationOptions(snap.Permissions, isAdmin, snap.Options.Affectations),
	}
}

// AccountCurrency resolves the currency the form should lock in for the
// selected account. Unknown accounts fall back to EUR.
func AccountCurrency(snap mirror.Snapshot, accountName string) string {
	if acc, ok := snap.Options.AccountByName(accountName); ok && acc.Currency != "" {
		return acc.Currency
	}
	return "EUR"
}

// Orphans are values referenced by transactions but absent from the current
// option lists, surfaced to admins for adoption into the lists.
type Orphans struct {
	Comptes      []string
	Categories   []string
	Affectations []string
}

// ComputeOrphans scans the transaction set against the option lists.
func ComputeOrphans(snap mirror.Snapshot) Orphans {
	knownAccounts := toSet(snap.Options.AccountNames())
	knownCategories := toSet(snap.Options.Categories)
	knownAffectations := toSet(snap.Options.Affectations)

	accounts := make(map[string]struct{})
	categories := make(map[string]struct{})
	affectations := make(map[string]struct{})
	for _, tx := range snap.Transactions {
		if tx.Compte != "" {
			if _, ok := knownAccounts[tx.Compte]; !ok {
				accounts[tx.Compte] = struct{}{}
			}
		}
		if tx.Categorie != "" {
			if _, ok := knownCategories[tx.Categorie]; !ok {
				categories[tx.Categorie] = struct{}{}
			}
		}
		if tx.Affectation != "" {
			if _, ok := knownAffectations[tx.Affectation]; !ok {
				affectations[tx.Affectation] = struct{}{}
			}
		}
	}
	return Orphans{
		Comptes:      sortedKeys(accounts),
		Categories:   sortedKeys(categories),
		Affectations: sortedKeys(affectations),
	}
}
