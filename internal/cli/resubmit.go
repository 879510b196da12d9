package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritas-dev/trust-ledger/pkg/sdk"
)

var resubmitBufferFlag string

var resubmitCmd = &cobra.Command{
	Use:   "resubmit",
	Short: "Seal buffered unsealed events",
	Long: `Resubmit drains the local unsealed buffer in order. Events that
seal successfully are removed; on the first failure the remainder stays
buffered for the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := sdk.NewUnsealedBuffer(resubmitBufferFlag)
		if err != nil {
			return err
		}
		c := sdk.New(addrFlag, sdk.WithUnsealedBuffer(buf))

		sealed, err := c.Resubmit(cmd.Context())
		if sealed > 0 {
			fmt.Printf("sealed %d buffered event(s)\n", sealed)
		}
		if err != nil {
			return err
		}
		if sealed == 0 {
			fmt.Println("buffer is empty")
		}
		return nil
	},
}

func init() {
	resubmitCmd.Flags().StringVar(&resubmitBufferFlag, "buffer", "./unsealed.jsonl", "unsealed buffer file")
	rootCmd.AddCommand(resubmitCmd)
}
