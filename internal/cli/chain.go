package cli

import (
	"github.com/spf13/cobra"
)

var (
	chainFromFlag  uint64
	chainLimitFlag uint64
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "List committed blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := client().Chain(cmd.Context(), chainFromFlag, chainLimitFlag)
		if err != nil {
			return err
		}
		return printJSON(page)
	},
}

func init() {
	chainCmd.Flags().Uint64Var(&chainFromFlag, "from", 0, "first block index")
	chainCmd.Flags().Uint64Var(&chainLimitFlag, "limit", 100, "maximum blocks to return")
	rootCmd.AddCommand(chainCmd)
}
