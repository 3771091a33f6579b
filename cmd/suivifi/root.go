package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fsadev/suivifi/internal/config"
	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/logger"
	"github.com/fsadev/suivifi/internal/perm"
	"github.com/fsadev/suivifi/internal/store/firestoredb"
)

var (
	cfgFile   string
	userUID   string
	userEmail string
	userName  string
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:           "suivifi",
	Short:         "Shared financial ledger with per-account permissions",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.suivifi.yaml)")
	rootCmd.PersistentFlags().StringVar(&userUID, "uid", "", "acting user id")
	rootCmd.PersistentFlags().StringVar(&userEmail, "email", "", "acting user email")
	rootCmd.PersistentFlags().StringVar(&userName, "name", "", "acting user display name")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress log output")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(claimsSyncCmd)
}

// session bundles everything a subcommand needs to talk to the backend.
type session struct {
	cfg   config.Config
	paths config.Paths
	st    *firestoredb.Store
	user  ledger.Identity
	admin bool
	log   zerolog.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("no GCP project configured; set project_id or SUIVIFI_PROJECT_ID")
	}
	log := logger.New()
	if quiet {
		log = logger.NewWithWriter(io.Discard)
	}
	// Subcommands and the packages they call pick the logger back up with
	// logger.FromContext.
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	st, err := firestoredb.New(cmd.Context(), cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("connect to firestore: %w", err)
	}
	user := ledger.Identity{UID: userUID, Email: userEmail, Name: userName}
	return &session{
		cfg:   cfg,
		paths: cfg.Paths(),
		st:    st,
		user:  user,
		admin: perm.IsAdmin(user.Email, cfg.AdminEmails),
		log:   log,
	}, nil
}

func (s *session) close() {
	if err := s.st.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing store")
	}
}
