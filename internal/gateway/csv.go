package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fsadev/suivifi/internal/ledger"
)

// csvHeader is the canonical column order for exports. Imports match
// columns by header name, not position, so reordered files still load.
var csvHeader = []string{
	"numero_operation",
	"compte",
	"montant",
	"type_operation",
	"date_reglement",
	"categorie",
	"affectation",
	"source_destination",
	"libelle",
	"devise",
}

// ImportCSV loads transactions from r and writes them in one atomic batch:
// either every importable row lands or none does. Rows missing an account or
// an amount are skipped, not failed. Imported rows carry no operation
// number; only interactively created transactions get one.
func (g *Gateway) ImportCSV(ctx context.Context, user ledger.Identity, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("import csv: %w: file is empty", ledger.ErrValidation)
	}
	if err != nil {
		return 0, fmt.Errorf("import csv: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["compte"]; !ok {
		return 0, fmt.Errorf("import csv: %w: missing compte column", ledger.ErrValidation)
	}

	now := g.now()
	batch := g.st.Batch()
	count := 0
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("import csv: read row %d: %w", count+skipped+2, err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		compte := field("compte")
		montant, ok := parseAmount(field("montant"))
		if compte == "" || !ok {
			skipped++
			continue
		}

		tx := ledger.Transaction{
			Compte:        compte,
			Montant:       montant,
			TypeOperation: ledger.OperationType(strings.ToLower(field("type_operation"))),
			DateReglement: ledger.NormalizeDate(field("date_reglement"), now),
			Categorie:     field("categorie"),
			Affectation:   field("affectation"),
			SourceDest:    field("source_destination"),
			Libelle:       field("libelle"),
			Devise:        field("devise"),
			AjoutePar:     user,
			DateAjout:     now,
		}
		batch.Set(g.paths.Transactions, g.st.NewID(g.paths.Transactions), tx.Doc())
		count++
	}

	if count == 0 {
		return 0, nil
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("import csv: commit %d rows: %w", count, err)
	}
	g.log.Info().Int("imported", count).Int("skipped", skipped).Msg("csv import committed")
	return count, nil
}

// ExportCSV writes transactions with the full field set so the resulting
// file re-imports cleanly.
func (g *Gateway) ExportCSV(w io.Writer, txs []ledger.Transaction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("export csv: write header: %w", err)
	}
	for _, tx := range txs {
		numero := ""
		if tx.NumeroOperation != nil {
			numero = fmt.Sprintf("%d", *tx.NumeroOperation)
		}
		row := []string{
			numero,
			tx.Compte,
			tx.Montant.String(),
			string(tx.TypeOperation),
			tx.DateReglement,
			tx.Categorie,
			tx.Affectation,
			tx.SourceDest,
			tx.Libelle,
			tx.Devise,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("export csv: write row %s: %w", tx.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("export csv: flush: %w", err)
	}
	return nil
}

// parseAmount normalizes a free-form amount cell: everything except digits
// and separators is stripped, the decimal comma becomes a point, and the
// result is taken as an absolute value. The sign lives in type_operation.
func parseAmount(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Abs(), true
}
