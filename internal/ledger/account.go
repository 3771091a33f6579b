package ledger

// Account is a named monetary bucket. Names are unique within the account
// option list; the currency drives formatting and the color tags the account
// in every view.
type Account struct {
	Name     string
	Currency string
	Color    string
}

// Doc encodes the account as it is stored inside the option list document.
func (a Account) Doc() map[string]any {
	return map[string]any{"name": a.Name, "currency": a.Currency, "color": a.Color}
}

// DecodeAccount converts a stored option-list entry back into an Account.
func DecodeAccount(v any) (Account, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Account{}, false
	}
	a := Account{
		Name:     asString(m["name"]),
		Currency: asString(m["currency"]),
		Color:    asString(m["color"]),
	}
	return a, a.Name != ""
}
