package mirror

import (
	"github.com/fsadev/suivifi/internal/ledger"
)

// User is one entry of the user directory mirror (admin only).
type User struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Snapshot is one immutable published view of the local reactive state.
// Slices are freshly allocated per snapshot; consumers may hold one as long
// as they like.
type Snapshot struct {
	// Transactions is the canonical merged set, sorted descending by
	// settlement date.
	Transactions []ledger.Transaction
	// Options is the option-list cache.
	Options ledger.OptionLists
	// Permissions is the caller's own permission record.
	Permissions ledger.Permissions

	// Users and AllPermissions mirror the full directories; populated for
	// admin sessions only.
	Users          []User
	AllPermissions map[string]ledger.Permissions
}

func decodeUser(id string, data map[string]any) User {
	str := func(k string) string {
		s, _ := data[k].(string)
		return s
	}
	u := User{
		UID:         str("uid"),
		Email:       str("email"),
		DisplayName: str("displayName"),
		PhotoURL:    str("photoURL"),
	}
	if u.UID == "" {
		u.UID = id
	}
	return u
}
