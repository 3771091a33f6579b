// Package claims keeps the auth provider's session claims in step with the
// stored permission records, replacing a pair of server-side triggers with a
// small service consuming the permission collection's change stream.
package claims

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/perm"
	"github.com/fsadev/suivifi/internal/store"
)

// Claims are the two flat lists attached to a user's session.
type Claims struct {
	ReadableAccounts []string
	WritableAccounts []string
}

// Derive flattens a permission record into session claims.
func Derive(p ledger.Permissions) Claims {
	readable, writable := perm.Claims(p)
	return Claims{ReadableAccounts: readable, WritableAccounts: writable}
}

// ClaimSetter is the auth provider surface the syncer drives.
type ClaimSetter interface {
	SetClaims(ctx context.Context, uid string, c Claims) error
	ClearClaims(ctx context.Context, uid string) error
}

// Syncer mirrors permission record changes into session claims: every
// upsert re-derives and sets, every removal clears.
type Syncer struct {
	st   store.Store
	auth ClaimSetter
	path string
	log  zerolog.Logger
}

// NewSyncer creates a syncer watching the permission collection at path.
func NewSyncer(st store.Store, auth ClaimSetter, path string, log zerolog.Logger) *Syncer {
	return &Syncer{
		st:   st,
		auth: auth,
		path: path,
		log:  log.With().Str("component", "claims-syncer").Logger(),
	}
}

// Run subscribes to the permission collection and applies every change
// until ctx is cancelled or the subscription ends. A failed claim write is
// logged and skipped; the stream keeps flowing so one bad record cannot
// stall every other user's claims.
func (s *Syncer) Run(ctx context.Context) error {
	sub, err := s.st.Subscribe(ctx, store.Query{Collection: s.path})
	if err != nil {
		return fmt.Errorf("claims syncer: subscribe %s: %w", s.path, err)
	}
	defer sub.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-sub.Events():
			if !ok {
				if err := sub.Err(); err != nil {
					return fmt.Errorf("claims syncer: subscription ended: %w", err)
				}
				return nil
			}
			for _, ev := range batch {
				s.apply(ctx, ev)
			}
		}
	}
}

func (s *Syncer) apply(ctx context.Context, ev store.Event) {
	switch ev.Kind {
	case store.Added, store.Modified:
		c := Derive(ledger.DecodePermissions(ev.Data))
		if err := s.auth.SetClaims(ctx, ev.ID, c); err != nil {
			s.log.Error().Err(err).Str("uid", ev.ID).Msg("failed to set claims")
			return
		}
		s.log.Info().
			Str("uid", ev.ID).
			Int("readable", len(c.ReadableAccounts)).
			Int("writable", len(c.WritableAccounts)).
			Msg("claims updated")
	case store.Removed:
		if err := s.auth.ClearClaims(ctx, ev.ID); err != nil {
			s.log.Error().Err(err).Str("uid", ev.ID).Msg("failed to clear claims")
			return
		}
		s.log.Info().Str("uid", ev.ID).Msg("claims cleared")
	}
}
