package ledger

// AccessLevel is the per-account grant level. Write implies read.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// AccountGrant grants one access level on one account.
type AccountGrant struct {
	Name   string
	Access AccessLevel
}

// Permissions is one user's permission record. A user with no record behaves
// exactly like a user with an empty one. Admin saves overwrite the whole
// record, they never merge.
type Permissions struct {
	AllowedAccounts     []AccountGrant
	AllowedCategories   []string
	AllowedAffectations []string
}

// Doc encodes the record into its stored shape.
func (p Permissions) Doc() map[string]any {
	accounts := make([]any, 0, len(p.AllowedAccounts))
	for _, g := range p.AllowedAccounts {
		accounts = append(accounts, map[string]any{"name": g.Name, "access": string(g.Access)})
	}
	return map[string]any{
		"allowed_accounts":     accounts,
		"allowed_categories":   toAnySlice(p.AllowedCategories),
		"allowed_affectations": toAnySlice(p.AllowedAffectations),
	}
}

// DecodePermissions converts a stored permission document. A nil document
// decodes to the empty record.
func DecodePermissions(data map[string]any) Permissions {
	var p Permissions
	if raw, ok := data["allowed_accounts"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			grant := AccountGrant{Name: asString(m["name"]), Access: AccessLevel(asString(m["access"]))}
			if grant.Name != "" {
				p.AllowedAccounts = append(p.AllowedAccounts, grant)
			}
		}
	}
	if raw, ok := data["allowed_categories"].([]any); ok {
		p.AllowedCategories = decodeStrings(raw)
	}
	if raw, ok := data["allowed_affectations"].([]any); ok {
		p.AllowedAffectations = decodeStrings(raw)
	}
	return p
}

func toAnySlice(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
