package ledger

// Option list keys. Each key is one document in the dropdown_options
// collection whose "values" field holds the list.
const (
	ListComptes      = "comptes"
	ListCategories   = "categories"
	ListAffectations = "affectations"
)

// OptionLists is the local cache of the three shared lookup lists. Accounts
// are structured; categories and affectations are plain strings.
type OptionLists struct {
	Comptes      []Account
	Categories   []string
	Affectations []string
}

// AccountNames returns the account names in option-list order.
func (o OptionLists) AccountNames() []string {
	names := make([]string, 0, len(o.Comptes))
	for _, a := range o.Comptes {
		names = append(names, a.Name)
	}
	return names
}

// AccountByName looks an account up by its unique name.
func (o OptionLists) AccountByName(name string) (Account, bool) {
	for _, a := range o.Comptes {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

// DecodeOptionList updates the list named by key from its stored document.
// Unknown keys are ignored so a stray document cannot corrupt the cache.
func (o *OptionLists) DecodeOptionList(key string, data map[string]any) {
	values, _ := data["values"].([]any)
	switch key {
	case ListComptes:
		accounts := make([]Account, 0, len(values))
		for _, v := range values {
			if a, ok := DecodeAccount(v); ok {
				accounts = append(accounts, a)
			}
		}
		o.Comptes = accounts
	case ListCategories:
		o.Categories = decodeStrings(values)
	case ListAffectations:
		o.Affectations = decodeStrings(values)
	}
}

func decodeStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
