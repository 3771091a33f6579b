// Package view derives everything the rendered screen needs from one state
// snapshot: the visible transaction subset, the filter facets, the fully
// filtered list and the per-account balances. All computations are pure;
// calling them on every snapshot is the intended usage.
package view

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/mirror"
	"github.com/fsadev/suivifi/internal/perm"
)

// Display labels for the operation-type facet.
const (
	LabelDebit  = "Débit"
	LabelCredit = "Crédit"
)

// Filters holds the active facet selections. An empty slice means "all" for
// that facet.
type Filters struct {
	Accounts     []string
	Years        []string
	Categories   []string
	Types        []string // LabelDebit / LabelCredit
	Affectations []string
}

// Facets are the values available for each filter dimension, computed from
// the account-filtered (but not facet-filtered) subset so they always show
// what is reachable given the account selection.
type Facets struct {
	Years        []string
	Categories   []string
	Types        []string
	Affectations []string
}

// Balance is one account's running total over the visible transaction set.
type Balance struct {
	Account ledger.Account
	Total   decimal.Decimal
}

// View is the full derived state for one snapshot and one filter selection.
type View struct {
	// Visible is every transaction whose account the caller may read,
	// before any facet filtering.
	Visible []ledger.Transaction
	// Filtered is the fully narrowed list, ordered newest first.
	Filtered []ledger.Transaction
	Facets   Facets
	// Balances holds one entry per readable account, in option-list order.
	// Accounts without transactions carry a zero total.
	Balances []Balance
}

// Compute derives the view. The snapshot's transaction order (descending by
// settlement date) is preserved through every filter step.
func Compute(snap mirror.Snapshot, isAdmin bool, filters Filters) View {
	readable := perm.ReadableAccounts(snap.Permissions, isAdmin, snap.Options.Comptes)
	readableSet := toSet(readable)

	visible := make([]ledger.Transaction, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		if _, ok := readableSet[tx.Compte]; ok {
			visible = append(visible, tx)
		}
	}

	accountFiltered := visible
	if len(filters.Accounts) > 0 {
		selected := toSet(filters.Accounts)
		accountFiltered = filterTx(visible, func(tx ledger.Transaction) bool {
			_, ok := selected[tx.Compte]
			return ok
		})
	}

	v := View{
		Visible:  visible,
		Facets:   computeFacets(accountFiltered),
		Balances: computeBalances(visible, snap.Options.Comptes, readableSet),
	}

	filtered := accountFiltered
	if len(filters.Years) > 0 {
		want := toSet(filters.Years)
		filtered = filterTx(filtered, func(tx ledger.Transaction) bool {
			_, ok := want[yearOf(tx)]
			return ok
		})
	}
	if len(filters.Categories) > 0 {
		want := toSet(filters.Categories)
		filtered = filterTx(filtered, func(tx ledger.Transaction) bool {
			_, ok := want[tx.Categorie]
			return ok
		})
	}
	if len(filters.Types) > 0 {
		want := toSet(filters.Types)
		filtered = filterTx(filtered, func(tx ledger.Transaction) bool {
			_, ok := want[TypeLabel(tx.TypeOperation)]
			return ok
		})
	}
	if len(filters.Affectations) > 0 {
		want := toSet(filters.Affectations)
		filtered = filterTx(filtered, func(tx ledger.Transaction) bool {
			_, ok := want[tx.Affectation]
			return ok
		})
	}
	v.Filtered = filtered
	return v
}

// TypeLabel maps an operation type onto its facet display label.
func TypeLabel(t ledger.OperationType) string {
	if t == ledger.Debit {
		return LabelDebit
	}
	return LabelCredit
}

func computeFacets(txs []ledger.Transaction) Facets {
	years := make(map[string]struct{})
	categories := make(map[string]struct{})
	types := make(map[string]struct{})
	affectations := make(map[string]struct{})
	for _, tx := range txs {
		if y := yearOf(tx); y != "" {
			years[y] = struct{}{}
		}
		if tx.Categorie != "" {
			categories[tx.Categorie] = struct{}{}
		}
		types[TypeLabel(tx.TypeOperation)] = struct{}{}
		if tx.Affectation != "" {
			affectations[tx.Affectation] = struct{}{}
		}
	}
	return Facets{
		Years:        sortedKeys(years),
		Categories:   sortedKeys(categories),
		Types:        sortedKeys(types),
		Affectations: sortedKeys(affectations),
	}
}

// computeBalances sums signed amounts over the account-visible set. Balance
// cards follow the option-list order and include zero-transaction accounts
// the caller may read.
func computeBalances(visible []ledger.Transaction, accounts []ledger.Account, readable map[string]struct{}) []Balance {
	totals := make(map[string]decimal.Decimal, len(readable))
	for _, tx := range visible {
		totals[tx.Compte] = totals[tx.Compte].Add(tx.SignedAmount())
	}
	balances := make([]Balance, 0, len(readable))
	for _, acc := range accounts {
		if _, ok := readable[acc.Name]; !ok {
			continue
		}
		balances = append(balances, Balance{Account: acc, Total: totals[acc.Name]})
	}
	return balances
}

func yearOf(tx ledger.Transaction) string {
	d := tx.SettlementDate()
	if d.Year == 0 {
		return ""
	}
	return strconv.Itoa(d.Year)
}

func filterTx(txs []ledger.Transaction, keep func(ledger.Transaction) bool) []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
