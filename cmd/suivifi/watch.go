package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fsadev/suivifi/internal/mirror"
	"github.com/fsadev/suivifi/internal/view"
)

var hundred = decimal.NewFromInt(100)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the ledger and print balances as they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := mirror.New(sess.st, sess.log, sess.paths, sess.user, sess.admin)
		if err := m.Start(ctx); err != nil {
			return err
		}
		defer m.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-m.Snapshots():
				if !ok {
					return nil
				}
				printSnapshot(cmd, snap, sess.admin)
			}
		}
	},
}

func printSnapshot(cmd *cobra.Command, snap mirror.Snapshot, isAdmin bool) {
	v := view.Compute(snap, isAdmin, view.Filters{})
	cmd.Printf("%d visible transactions\n", len(v.Visible))
	for _, b := range v.Balances {
		currency := b.Account.Currency
		if currency == "" {
			currency = money.EUR
		}
		cents := b.Total.Mul(hundred).Round(0).IntPart()
		amount := money.New(cents, currency)
		cmd.Printf("  %-20s %s\n", b.Account.Name, amount.Display())
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
