package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fsadev/suivifi/internal/gateway"
	"github.com/fsadev/suivifi/internal/mirror"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Load transactions from a CSV file in one atomic batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		gw := gateway.New(sess.st, sess.paths, sess.log)
		count, err := gw.ImportCSV(cmd.Context(), sess.user, f)
		if err != nil {
			return err
		}
		cmd.Printf("imported %d transactions\n", count)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Write every transaction visible to you to a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		m := mirror.New(sess.st, sess.log, sess.paths, sess.user, sess.admin)
		if err := m.Start(cmd.Context()); err != nil {
			return err
		}
		defer m.Stop()

		// The initial state arrives as a burst of snapshots, one per
		// subscribed collection. Keep the latest until the burst settles.
		var snap mirror.Snapshot
		got := false
		settle := time.NewTimer(2 * time.Second)
		defer settle.Stop()
	drain:
		for {
			select {
			case s, ok := <-m.Snapshots():
				if !ok {
					break drain
				}
				snap, got = s, true
				settle.Reset(500 * time.Millisecond)
			case <-settle.C:
				break drain
			}
		}
		if !got {
			return fmt.Errorf("export: no snapshot received")
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		defer f.Close()

		gw := gateway.New(sess.st, sess.paths, sess.log)
		if err := gw.ExportCSV(f, snap.Transactions); err != nil {
			return err
		}
		cmd.Printf("exported %d transactions\n", len(snap.Transactions))
		return nil
	},
}
