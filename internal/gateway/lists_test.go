package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/store/memory"
)

func accountList(t *testing.T, g *Gateway, s *memory.Store) ledger.OptionLists {
	t.Helper()
	doc, err := s.Get(context.Background(), g.paths.Options, ledger.ListComptes)
	require.NoError(t, err)
	var lists ledger.OptionLists
	lists.DecodeOptionList(ledger.ListComptes, doc)
	return lists
}

func TestAddAccount(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)

	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Courant", Currency: "EUR", Color: "#336699"}))
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Epargne"}))
	// Identical re-add is absorbed by the set-union.
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Courant", Currency: "EUR", Color: "#336699"}))

	lists := accountList(t, g, s)
	assert.Equal(t, []string{"Courant", "Epargne"}, lists.AccountNames())

	epargne, ok := lists.AccountByName("Epargne")
	require.True(t, ok)
	assert.Equal(t, "EUR", epargne.Currency, "missing currency defaults to EUR")
}

func TestAddAccount_RequiresName(t *testing.T) {
	g, _ := newTestGateway(t)
	err := g.AddAccount(context.Background(), ledger.Account{Currency: "EUR"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestEditAccount(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Courant", Currency: "EUR"}))
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Epargne", Currency: "EUR"}))

	require.NoError(t, g.EditAccount(ctx, "Courant", ledger.Account{Name: "Quotidien", Currency: "EUR", Color: "#fff"}))

	lists := accountList(t, g, s)
	assert.Equal(t, []string{"Quotidien", "Epargne"}, lists.AccountNames())
	renamed, _ := lists.AccountByName("Quotidien")
	assert.Equal(t, "#fff", renamed.Color)
}

func TestEditAccount_CollisionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Courant", Currency: "EUR"}))
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Epargne", Currency: "EUR"}))
	before := accountList(t, g, s)

	err := g.EditAccount(ctx, "Courant", ledger.Account{Name: "Epargne", Currency: "EUR"})
	require.ErrorIs(t, err, ledger.ErrConflict)
	assert.Equal(t, before, accountList(t, g, s))
}

func TestEditAccount_MissingOriginal(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Courant", Currency: "EUR"}))

	err := g.EditAccount(ctx, "Disparu", ledger.Account{Name: "Nouveau", Currency: "EUR"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAddListItem_DuplicatesAbsorbed(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)

	require.NoError(t, g.AddListItem(ctx, ledger.ListCategories, "Courses"))
	require.NoError(t, g.AddListItem(ctx, ledger.ListCategories, "Courses"))
	require.NoError(t, g.BulkAddListItems(ctx, ledger.ListCategories, []string{"Courses", "Loyer", ""}))

	doc, err := s.Get(ctx, g.paths.Options, ledger.ListCategories)
	require.NoError(t, err)
	var lists ledger.OptionLists
	lists.DecodeOptionList(ledger.ListCategories, doc)
	assert.Equal(t, []string{"Courses", "Loyer"}, lists.Categories)
}

func TestRemoveListItem(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)
	require.NoError(t, g.BulkAddListItems(ctx, ledger.ListAffectations, []string{"Commun", "Perso"}))

	require.NoError(t, g.RemoveListItem(ctx, ledger.ListAffectations, "Commun"))

	doc, err := s.Get(ctx, g.paths.Options, ledger.ListAffectations)
	require.NoError(t, err)
	var lists ledger.OptionLists
	lists.DecodeOptionList(ledger.ListAffectations, doc)
	assert.Equal(t, []string{"Perso"}, lists.Affectations)
}

func TestRemoveAccount_ByFullValue(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGateway(t)
	courant := ledger.Account{Name: "Courant", Currency: "EUR", Color: "#336699"}
	require.NoError(t, g.AddAccount(ctx, courant))
	require.NoError(t, g.AddAccount(ctx, ledger.Account{Name: "Epargne", Currency: "EUR"}))

	// Removal matches the whole document; a name-only value misses.
	require.NoError(t, g.RemoveListItem(ctx, ledger.ListComptes, map[string]any{"name": "Courant"}))
	assert.Len(t, accountList(t, g, s).Comptes, 2)

	require.NoError(t, g.RemoveAccount(ctx, courant))
	assert.Equal(t, []string{"Epargne"}, accountList(t, g, s).AccountNames())
}
