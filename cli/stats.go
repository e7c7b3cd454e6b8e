package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"productmatcher/database"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local catalog statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openCatalogDB(cfg.Catalog.DatabasePath, false)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := database.GetCatalogStats(cmd.Context(), db)
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", cfg.Catalog.DatabasePath)
		fmt.Printf("- Products: %d\n", stats.TotalProducts)
		fmt.Printf("- With embeddings: %d\n", stats.WithEmbeddings)
		fmt.Printf("- Categories: %d\n", stats.Categories)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
