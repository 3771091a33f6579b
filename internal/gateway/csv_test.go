package gateway

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/store/memory"
)

func importedTransactions(t *testing.T, g *Gateway, s *memory.Store) []ledger.Transaction {
	t.Helper()
	var txs []ledger.Transaction
	for id, doc := range s.Docs(g.paths.Transactions) {
		tx, err := ledger.DecodeTransaction(id, doc)
		require.NoError(t, err)
		txs = append(txs, tx)
	}
	return txs
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)

	input := strings.Join([]string{
		"compte,montant,type_operation,date_reglement,categorie,libelle",
		`Courant,"1 234,56 €",DEBIT ,15/01/2026,Courses,Hypermarché`,
		"Epargne,500,credit,2026-02-01,Epargne,Virement",
		",10,debit,2026-01-01,Courses,sans compte",
		"Courant,,debit,2026-01-01,Courses,sans montant",
	}, "\n")

	count, err := g.ImportCSV(ctx, testUser, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	txs := importedTransactions(t, g, s)
	require.Len(t, txs, 2)
	byCompte := make(map[string]ledger.Transaction)
	for _, tx := range txs {
		byCompte[tx.Compte] = tx
	}

	courant := byCompte["Courant"]
	assert.True(t, courant.Montant.Equal(decimal.RequireFromString("1234.56")), "montant = %s", courant.Montant)
	assert.Equal(t, ledger.Debit, courant.TypeOperation)
	assert.Equal(t, "2026-01-15", courant.DateReglement)
	assert.Equal(t, testUser, courant.AjoutePar)

	// Imported rows never receive an operation number; only interactive
	// creates do.
	for _, tx := range txs {
		assert.Nil(t, tx.NumeroOperation, "imported %s should carry no numero", tx.ID)
	}
}

func TestImportCSV_EmptyAndHeaderOnly(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)

	_, err := g.ImportCSV(ctx, testUser, strings.NewReader(""))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	count, err := g.ImportCSV(ctx, testUser, strings.NewReader("compte,montant\n"))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportCSV_MissingCompteColumn(t *testing.T) {
	g, _ := newTestGateway(t)
	_, err := g.ImportCSV(context.Background(), testUser, strings.NewReader("montant,libelle\n10,x\n"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestImportCSV_Atomic(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)
	s.FailNextBatch(errors.New("backend down"))

	input := "compte,montant,type_operation\nCourant,10,debit\nEpargne,20,credit\n"
	count, err := g.ImportCSV(ctx, testUser, strings.NewReader(input))
	require.Error(t, err)
	assert.Zero(t, count)
	assert.Empty(t, importedTransactions(t, g, s))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)

	first, err := g.CreateTransaction(ctx, testUser, validTx())
	require.NoError(t, err)
	second := validTx()
	second.Compte = "Epargne"
	second.TypeOperation = ledger.Credit
	second.Montant = decimal.RequireFromString("500.25")
	second.DateReglement = "2026-02-01"
	_, err = g.CreateTransaction(ctx, testUser, second)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.ExportCSV(&buf, importedTransactions(t, g, s)))

	// Loading the export into a fresh ledger reproduces every monetary
	// field; the operation numbers are intentionally left behind.
	g2, s2 := newTestGateway(t)
	count, err := g2.ImportCSV(ctx, testUser, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	reimported := importedTransactions(t, g2, s2)
	byCompte := make(map[string]ledger.Transaction)
	for _, tx := range reimported {
		byCompte[tx.Compte] = tx
	}
	assert.True(t, byCompte["Courant"].Montant.Equal(first.Montant))
	assert.Equal(t, first.DateReglement, byCompte["Courant"].DateReglement)
	assert.True(t, byCompte["Epargne"].Montant.Equal(second.Montant))
	assert.Equal(t, ledger.Credit, byCompte["Epargne"].TypeOperation)
	assert.Nil(t, byCompte["Courant"].NumeroOperation)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "12.50", want: "12.5", ok: true},
		{in: "12,50", want: "12.5", ok: true},
		{in: "1 234,56 €", want: "1234.56", ok: true},
		{in: "-40", want: "40", ok: true},
		{in: "(blank)", want: "", ok: false},
		{in: "", want: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseAmount(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseAmount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
