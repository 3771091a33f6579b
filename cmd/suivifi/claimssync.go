package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fsadev/suivifi/internal/claims"
	"github.com/fsadev/suivifi/internal/logger"
)

var claimsSyncCmd = &cobra.Command{
	Use:   "claims-sync",
	Short: "Mirror permission record changes into session claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.FromContext(ctx)
		syncer := claims.NewSyncer(sess.st, logClaimSetter{log: log}, sess.paths.Permissions, log)
		if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// logClaimSetter records the derived claims without an auth backend. The
// real provider plugs in through the same interface.
type logClaimSetter struct {
	log zerolog.Logger
}

func (l logClaimSetter) SetClaims(ctx context.Context, uid string, c claims.Claims) error {
	l.log.Info().
		Str("uid", uid).
		Strs("readable_accounts", c.ReadableAccounts).
		Strs("writable_accounts", c.WritableAccounts).
		Msg("claims derived")
	return nil
}

func (l logClaimSetter) ClearClaims(ctx context.Context, uid string) error {
	l.log.Info().Str("uid", uid).Msg("claims removed")
	return nil
}
