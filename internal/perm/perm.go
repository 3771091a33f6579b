// Package perm derives per-user visibility and editability from a permission
// record. Every function is a pure derivation, safe to call on every
// snapshot; nothing here touches the store.
package perm

import (
	"strings"

	"github.com/fsadev/suivifi/internal/ledger"
)

// IsAdmin reports whether email belongs to the configured administrator list.
// Comparison is case-insensitive on the email address.
func IsAdmin(email string, adminEmails []string) bool {
	for _, admin := range adminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// ReadableAccounts returns the names of every account the caller may see.
// Admins implicitly read every account in the option list, bypassing the
// stored record entirely. Non-admins read exactly the accounts granted with
// read or write access; write is a superset implying read.
func ReadableAccounts(p ledger.Permissions, isAdmin bool, allAccounts []ledger.Account) []string {
	if isAdmin {
		names := make([]string, 0, len(allAccounts))
		for _, a := range allAccounts {
			names = append(names, a.Name)
		}
		return names
	}
	names := make([]string, 0, len(p.AllowedAccounts))
	for _, g := range p.AllowedAccounts {
		if g.Access == ledger.AccessRead || g.Access == ledger.AccessWrite {
			names = append(names, g.Name)
		}
	}
	return names
}

// WritableAccounts returns the names of every account the caller may modify.
func WritableAccounts(p ledger.Permissions, isAdmin bool, allAccounts []ledger.Account) []string {
	if isAdmin {
		names := make([]string, 0, len(allAccounts))
		for _, a := range allAccounts {
			names = append(names, a.Name)
		}
		return names
	}
	names := make([]string, 0, len(p.AllowedAccounts))
	for _, g := range p.AllowedAccounts {
		if g.Access == ledger.AccessWrite {
			names = append(names, g.Name)
		}
	}
	return names
}

// CanWrite reports whether the caller may modify transactions on the named
// account.
func CanWrite(p ledger.Permissions, isAdmin bool, account string) bool {
	if isAdmin {
		return true
	}
	for _, g := range p.AllowedAccounts {
		if g.Name == account && g.Access == ledger.AccessWrite {
			return true
		}
	}
	return false
}

// CategoryOptions returns the category values available to the caller.
// Admins get the full list; non-admins get their granted subset.
func CategoryOptions(p ledger.Permissions, isAdmin bool, allCategories []string) []string {
	if isAdmin {
		return append([]string(nil), allCategories...)
	}
	return append([]string(nil), p.AllowedCategories...)
}

// AffectationOptions returns the allocation values available to the caller.
func AffectationOptions(p ledger.Permissions, isAdmin bool, allAffectations []string) []string {
	if isAdmin {
		return append([]string(nil), allAffectations...)
	}
	return append([]string(nil), p.AllowedAffectations...)
}

// Claims flattens a permission record into the two claim lists the auth
// provider attaches to the session: all readable account names and the
// writable subset. This is exactly the non-admin derivation; admins never
// depend on claims.
func Claims(p ledger.Permissions) (readable, writable []string) {
	readable = make([]string, 0, len(p.AllowedAccounts))
	writable = make([]string, 0, len(p.AllowedAccounts))
	for _, g := range p.AllowedAccounts {
		readable = append(readable, g.Name)
		if g.Access == ledger.AccessWrite {
			writable = append(writable, g.Name)
		}
	}
	return readable, writable
}
