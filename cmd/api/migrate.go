package main

import (
	"log"

	"github.com/PabloPavan/swiftsnip/internal/config"
	"github.com/PabloPavan/swiftsnip/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		dir, err := db.ParseDirection(arg)
		if err != nil {
			return err
		}

		databaseURL := config.Env("DATABASE_URL", "")
		if databaseURL == "" {
			log.Fatal("missing env: DATABASE_URL")
		}
		if err := db.Migrate(databaseURL, dir); err != nil {
			return err
		}
		log.Printf("migrations %s applied", dir)
		return nil
	},
}
