package cli

import (
	"github.com/spf13/cobra"
)

var (
	sealActionFlag string
	sealMetaFlag   []string
)

var sealCmd = &cobra.Command{
	Use:   "seal <plaintext>",
	Short: "Encrypt a payload and attest its ciphertext on the chain",
	Long: `Seal sends the payload to the daemon's encryption gateway. The
chain records a digest of the resulting ciphertext, never the plaintext;
the printed envelope is the only way back to the data, and shredding its
key makes that permanent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := parseMeta(sealMetaFlag)
		if err != nil {
			return err
		}
		res, err := client().Seal(cmd.Context(), args[0], sealActionFlag, meta)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	sealCmd.Flags().StringVar(&sealActionFlag, "action", "", "action label (default DOCUMENT_DIGITIZATION)")
	sealCmd.Flags().StringArrayVar(&sealMetaFlag, "meta", nil, "metadata key=value (repeatable)")
	rootCmd.AddCommand(sealCmd)
}
