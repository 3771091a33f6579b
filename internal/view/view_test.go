package view

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/mirror"
)

func tx(id, compte string, montant float64, op ledger.OperationType, date, categorie, affectation string) ledger.Transaction {
	return ledger.Transaction{
		ID:            id,
		Compte:        compte,
		Montant:       decimal.NewFromFloat(montant),
		TypeOperation: op,
		DateReglement: date,
		Categorie:     categorie,
		Affectation:   affectation,
	}
}

func testSnapshot() mirror.Snapshot {
	return mirror.Snapshot{
		Transactions: []ledger.Transaction{
			tx("t1", "Courant", 100, ledger.Credit, "2026-02-01", "Salaire", "Commun"),
			tx("t2", "Courant", 40, ledger.Debit, "2026-01-15", "Courses", "Commun"),
			tx("t3", "Epargne", 500, ledger.Credit, "2025-12-01", "Epargne", "Perso"),
			tx("t4", "Especes", 5, ledger.Debit, "2026-01-02", "Courses", "Perso"),
		},
		Options: ledger.OptionLists{
			Comptes: []ledger.Account{
				{Name: "Courant", Currency: "EUR"},
				{Name: "Epargne", Currency: "EUR"},
				{Name: "Especes", Currency: "EUR"},
			},
			Categories:   []string{"Salaire", "Courses", "Epargne"},
			Affectations: []string{"Commun", "Perso"},
		},
		Permissions: ledger.Permissions{AllowedAccounts: []ledger.AccountGrant{
			{Name: "Courant", Access: ledger.AccessWrite},
			{Name: "Epargne", Access: ledger.AccessRead},
		}},
	}
}

func ids(txs []ledger.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func TestCompute_VisibilityEqualsReadableSet(t *testing.T) {
	v := Compute(testSnapshot(), false, Filters{})
	if got := ids(v.Visible); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("Visible = %v, want [t1 t2 t3]", got)
	}

	// Admins see every account regardless of the record.
	v = Compute(testSnapshot(), true, Filters{})
	if len(v.Visible) != 4 {
		t.Errorf("admin Visible = %v, want all four", ids(v.Visible))
	}
}

func TestCompute_Balances(t *testing.T) {
	v := Compute(testSnapshot(), false, Filters{})

	// One entry per readable account, option-list order, credits minus
	// debits: 100 - 40 = 60 on Courant.
	if len(v.Balances) != 2 {
		t.Fatalf("Balances = %+v, want two entries", v.Balances)
	}
	if v.Balances[0].Account.Name != "Courant" || !v.Balances[0].Total.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Courant balance = %+v, want 60", v.Balances[0])
	}
	if v.Balances[1].Account.Name != "Epargne" || !v.Balances[1].Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Epargne balance = %+v, want 500", v.Balances[1])
	}
}

func TestCompute_BalancesIgnoreFilters(t *testing.T) {
	filtered := Compute(testSnapshot(), false, Filters{Categories: []string{"Courses"}})
	unfiltered := Compute(testSnapshot(), false, Filters{})
	if !reflect.DeepEqual(filtered.Balances, unfiltered.Balances) {
		t.Error("facet filters must not change balances")
	}
}

func TestCompute_ZeroBalanceForIdleAccount(t *testing.T) {
	snap := testSnapshot()
	snap.Transactions = nil
	v := Compute(snap, false, Filters{})
	if len(v.Balances) != 2 {
		t.Fatalf("Balances = %+v", v.Balances)
	}
	for _, b := range v.Balances {
		if !b.Total.IsZero() {
			t.Errorf("%s balance = %s, want 0", b.Account.Name, b.Total)
		}
	}
}

func TestCompute_FacetsFollowAccountFilter(t *testing.T) {
	v := Compute(testSnapshot(), false, Filters{Accounts: []string{"Epargne"}})

	// Facets are computed from the account-narrowed subset only.
	if !reflect.DeepEqual(v.Facets.Years, []string{"2025"}) {
		t.Errorf("Years = %v, want [2025]", v.Facets.Years)
	}
	if !reflect.DeepEqual(v.Facets.Categories, []string{"Epargne"}) {
		t.Errorf("Categories = %v, want [Epargne]", v.Facets.Categories)
	}
	if !reflect.DeepEqual(v.Facets.Types, []string{LabelCredit}) {
		t.Errorf("Types = %v, want [Crédit]", v.Facets.Types)
	}
}

func TestCompute_SequentialFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{name: "none", filters: Filters{}, want: []string{"t1", "t2", "t3"}},
		{name: "account", filters: Filters{Accounts: []string{"Courant"}}, want: []string{"t1", "t2"}},
		{name: "year", filters: Filters{Years: []string{"2026"}}, want: []string{"t1", "t2"}},
		{name: "category", filters: Filters{Categories: []string{"Courses"}}, want: []string{"t2"}},
		{name: "type label", filters: Filters{Types: []string{LabelDebit}}, want: []string{"t2"}},
		{name: "affectation", filters: Filters{Affectations: []string{"Perso"}}, want: []string{"t3"}},
		{
			name:    "intersection",
			filters: Filters{Accounts: []string{"Courant"}, Years: []string{"2026"}, Types: []string{LabelCredit}},
			want:    []string{"t1"},
		},
		{
			name:    "empty intersection",
			filters: Filters{Accounts: []string{"Epargne"}, Years: []string{"2026"}},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Compute(testSnapshot(), false, tt.filters)
			if got := ids(v.Filtered); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filtered = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeFormOptions(t *testing.T) {
	opts := ComputeFormOptions(testSnapshot(), false)
	if !reflect.DeepEqual(opts.Accounts, []string{"Courant"}) {
		t.Errorf("Accounts = %v, want writable subset only", opts.Accounts)
	}

	admin := ComputeFormOptions(testSnapshot(), true)
	if !reflect.DeepEqual(admin.Accounts, []string{"Courant", "Epargne", "Especes"}) {
		t.Errorf("admin Accounts = %v", admin.Accounts)
	}
	if !reflect.DeepEqual(admin.Categories, []string{"Salaire", "Courses", "Epargne"}) {
		t.Errorf("admin Categories = %v", admin.Categories)
	}
}

func TestAccountCurrency(t *testing.T) {
	snap := testSnapshot()
	snap.Options.Comptes[0].Currency = "USD"
	if got := AccountCurrency(snap, "Courant"); got != "USD" {
		t.Errorf("AccountCurrency(Courant) = %q, want USD", got)
	}
	if got := AccountCurrency(snap, "Inconnu"); got != "EUR" {
		t.Errorf("AccountCurrency(Inconnu) = %q, want EUR fallback", got)
	}
}

func TestComputeOrphans(t *testing.T) {
	snap := testSnapshot()
	snap.Transactions = append(snap.Transactions,
		tx("t5", "Vieux-Compte", 1, ledger.Debit, "2024-01-01", "Divers", "Commun"))

	orphans := ComputeOrphans(snap)
	if !reflect.DeepEqual(orphans.Comptes, []string{"Vieux-Compte"}) {
		t.Errorf("orphan Comptes = %v", orphans.Comptes)
	}
	if !reflect.DeepEqual(orphans.Categories, []string{"Divers"}) {
		t.Errorf("orphan Categories = %v", orphans.Categories)
	}
	if len(orphans.Affectations) != 0 {
		t.Errorf("orphan Affectations = %v, want none", orphans.Affectations)
	}
}
