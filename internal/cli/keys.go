package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a fresh encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := client().ProvisionKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(keyID)
		return nil
	},
}

var keysShredCmd = &cobra.Command{
	Use:   "shred <key-id>",
	Short: "Irreversibly destroy a key (crypto-shredding)",
	Long: `Shred destroys the key material. Every envelope sealed under the
key becomes permanently undecryptable. The shred itself is committed to
the chain. Shredding an already shredded key succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		receipt, err := client().ShredKey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(receipt)
	},
}

func init() {
	keysCmd.AddCommand(keysProvisionCmd)
	keysCmd.AddCommand(keysShredCmd)
	rootCmd.AddCommand(keysCmd)
}
