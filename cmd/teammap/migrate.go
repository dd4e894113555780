package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/database"
	"github.com/teammap/teammap/internal/logging"

	"github.com/spf13/cobra"
)

func newMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the journal tables",
		Long: `Connects to the Postgres journal database and creates its tables. When
Postgres cannot be reached the schema is created in the local SQLite file
named by storage.sqlite.path instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(*configDir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Using defaults: %v\n", err)
			}

			m := database.NewManager(logging.NewZerolog(cmd.ErrOrStderr(), config.GetString("logLevel"), "database"))
			m.SqliteFilePath = config.GetStorageConfig().SQLite.Path
			if err := os.MkdirAll(filepath.Dir(m.SqliteFilePath), 0755); err != nil {
				return fmt.Errorf("creating journal directory: %w", err)
			}
			if err := m.Connect(); err != nil {
				return fmt.Errorf("connecting to journal database: %w", err)
			}
			defer m.SqlDB.Close()

			if err := m.Setup(); err != nil {
				return err
			}

			target := "postgres"
			if m.ShouldSaveLocal {
				target = m.SqliteFilePath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal schema ready in %s\n", target)
			return nil
		},
	}
}
