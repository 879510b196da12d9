package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritas-dev/trust-ledger/internal/ledger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <src-db> <dst-db>",
	Short: "Copy a ledger file, re-verifying the chain block by block",
	Long: `Migrate replays every block from the source ledger into an empty
destination file. Linkage is rechecked during the copy, so a tampered
source chain is refused rather than propagated.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := ledger.OpenSQLite(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := ledger.OpenSQLite(args[1])
		if err != nil {
			return err
		}
		defer dst.Close()

		n, err := ledger.Migrate(src, dst)
		if err != nil {
			return err
		}
		fmt.Printf("migrated %d block(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
