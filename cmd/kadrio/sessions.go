package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wpietrzak/kadrio/internal/config"
	"github.com/wpietrzak/kadrio/internal/db"
	"github.com/wpietrzak/kadrio/internal/store"
)

func newSessionsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd.OutOrStdout(), configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "kadrio.yaml", "path to Kadrio config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of sessions to list")
	return cmd
}

func runSessions(out io.Writer, configPath string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	page, err := st.ListSessions(context.Background(), limit, 0)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(page.Sessions) == 0 {
		fmt.Fprintln(out, "No active sessions.")
		return nil
	}
	for _, sess := range page.Sessions {
		fmt.Fprintf(out, "%-40s  %-30s  %4d msgs  last active %s\n",
			sess.SessionID, sess.Name, sess.MessageCount,
			sess.LastActivityAt.Format("2006-01-02 15:04"))
	}
	if page.HasMore {
		fmt.Fprintf(out, "... and %d more\n", page.Total-int64(len(page.Sessions)))
	}
	return nil
}
