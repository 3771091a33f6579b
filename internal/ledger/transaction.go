package ledger

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// OperationType tells whether a transaction moves money out of or into an
// account. The amount itself is always stored as an absolute value; the sign
// is derived from the type at display and aggregation time.
type OperationType string

const (
	Debit  OperationType = "debit"
	Credit OperationType = "credit"
)

// Identity is a snapshot of who performed an action, captured at write time
// so the record stays meaningful even if the user is later removed.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Modification is one entry of a transaction's append-only edit history.
type Modification struct {
	Date       time.Time
	ModifiePar Identity
}

// Transaction is one ledger entry. Field names mirror the stored document
// fields (compte, montant, ...).
type Transaction struct {
	ID              string
	NumeroOperation *int64 // assigned once at creation; nil for bulk imports
	Compte          string
	Montant         decimal.Decimal // absolute value, never signed
	TypeOperation   OperationType
	DateReglement   string // YYYY-MM-DD
	Categorie       string
	Affectation     string
	SourceDest      string
	Libelle         string
	Devise          string

	AjoutePar               Identity
	DateAjout               time.Time
	HistoriqueModifications []Modification
}

// SignedAmount returns the amount with its sign derived from the operation
// type: credits are positive, debits negative.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.TypeOperation == Debit {
		return t.Montant.Neg()
	}
	return t.Montant
}

// SettlementDate parses date_reglement. The zero civil.Date is returned for
// malformed values so callers can still sort them deterministically.
func (t Transaction) SettlementDate() civil.Date {
	d, err := civil.ParseDate(t.DateReglement)
	if err != nil {
		return civil.Date{}
	}
	return d
}

// Validate reports the first problem that would make the transaction
// unacceptable for a write. It is called before anything reaches the store.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Compte) == "" {
		return fmt.Errorf("transaction: %w: compte is required", ErrValidation)
	}
	if t.Montant.IsNegative() {
		return fmt.Errorf("transaction: %w: montant must not be negative", ErrValidation)
	}
	if t.TypeOperation != Debit && t.TypeOperation != Credit {
		return fmt.Errorf("transaction: %w: type_operation must be debit or credit", ErrValidation)
	}
	if t.DateReglement != "" {
		if _, err := civil.ParseDate(t.DateReglement); err != nil {
			return fmt.Errorf("transaction: %w: date_reglement %q is not YYYY-MM-DD", ErrValidation, t.DateReglement)
		}
	}
	return nil
}

// Doc encodes the transaction into its stored document shape. The document id
// is not part of the document body.
func (t Transaction) Doc() map[string]any {
	history := make([]any, 0, len(t.HistoriqueModifications))
	for _, m := range t.HistoriqueModifications {
		history = append(history, m.Doc())
	}
	doc := map[string]any{
		"compte":                   t.Compte,
		"montant":                  t.Montant.InexactFloat64(),
		"type_operation":           string(t.TypeOperation),
		"date_reglement":           t.DateReglement,
		"categorie":                t.Categorie,
		"affectation":              t.Affectation,
		"source_destination":       t.SourceDest,
		"libelle":                  t.Libelle,
		"devise":                   t.Devise,
		"ajoute_par":               t.AjoutePar.Doc(),
		"date_ajout":               t.DateAjout.UTC().Format(time.RFC3339),
		"historique_modifications": history,
	}
	if t.NumeroOperation != nil {
		doc["numero_operation"] = *t.NumeroOperation
	} else {
		doc["numero_operation"] = nil
	}
	return doc
}

// Doc encodes the identity snapshot as stored inside documents.
func (i Identity) Doc() map[string]any {
	return map[string]any{"uid": i.UID, "email": i.Email, "name": i.Name}
}

// Doc encodes one history entry as stored inside the
// historique_modifications array. The timestamp keeps full sub-second
// precision so consecutive edits inside the same second stay distinct
// array values and survive the union merge.
func (m Modification) Doc() map[string]any {
	return map[string]any{
		"date":        m.Date.UTC().Format(time.RFC3339Nano),
		"modifie_par": m.ModifiePar.Doc(),
	}
}

// DecodeTransaction validates and converts a stored document into a typed
// Transaction. Loose shapes coming back from the store (int64 vs float64
// numbers, missing optional fields) are tolerated; a missing compte is not.
func DecodeTransaction(id string, data map[string]any) (Transaction, error) {
	t := Transaction{
		ID:            id,
		Compte:        asString(data["compte"]),
		TypeOperation: OperationType(asString(data["type_operation"])),
		DateReglement: asString(data["date_reglement"]),
		Categorie:     asString(data["categorie"]),
		Affectation:   asString(data["affectation"]),
		SourceDest:    asString(data["source_destination"]),
		Libelle:       asString(data["libelle"]),
		Devise:        asString(data["devise"]),
	}

	switch v := data["montant"].(type) {
	case float64:
		t.Montant = decimal.NewFromFloat(v)
	case int64:
		t.Montant = decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Transaction{}, fmt.Errorf("decode transaction %s: montant %q: %w", id, v, ErrValidation)
		}
		t.Montant = d
	case nil:
		t.Montant = decimal.Zero
	default:
		return Transaction{}, fmt.Errorf("decode transaction %s: montant has unsupported type %T: %w", id, v, ErrValidation)
	}

	switch v := data["numero_operation"].(type) {
	case int64:
		t.NumeroOperation = &v
	case float64:
		n := int64(v)
		t.NumeroOperation = &n
	}

	t.AjoutePar = decodeIdentity(data["ajoute_par"])
	if s := asString(data["date_ajout"]); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			t.DateAjout = ts
		}
	}

	if raw, ok := data["historique_modifications"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			mod := Modification{ModifiePar: decodeIdentity(m["modifie_par"])}
			// RFC3339Nano accepts timestamps with or without a
			// fractional part, so entries written before sub-second
			// precision still decode.
			if ts, err := time.Parse(time.RFC3339Nano, asString(m["date"])); err == nil {
				mod.Date = ts
			}
			t.HistoriqueModifications = append(t.HistoriqueModifications, mod)
		}
	}

	if t.Compte == "" {
		return Transaction{}, fmt.Errorf("decode transaction %s: %w: compte missing", id, ErrValidation)
	}
	return t, nil
}

func decodeIdentity(v any) Identity {
	m, ok := v.(map[string]any)
	if !ok {
		return Identity{}
	}
	return Identity{
		UID:   asString(m["uid"]),
		Email: asString(m["email"]),
		Name:  asString(m["name"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// NormalizeDate rewrites DD/MM/YYYY dates to YYYY-MM-DD. Anything else,
// including already-normalized dates, passes through unchanged. Empty input
// defaults to today.
func NormalizeDate(s string, now time.Time) string {
	if s == "" {
		return civil.DateOf(now).String()
	}
	if !strings.Contains(s, "/") {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return fmt.Sprintf("%s-%s-%s", year, month, day)
}
