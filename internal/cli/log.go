package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritas-dev/trust-ledger/pkg/sdk"
)

var (
	logDataHashFlag  string
	logEventTypeFlag string
	logMetaFlag      []string
	logBufferFlag    string
)

var logCmd = &cobra.Command{
	Use:   "log <action>",
	Short: "Commit an audit event to the chain",
	Long: `Commit an audit event and print its receipt.

With --buffer, events are parked in a local unsealed buffer when the
daemon is unreachable instead of being lost:

  trustctl log DOCUMENT_UPLOAD --data-hash <digest> --meta user=jane
  trustctl log LOGIN --buffer ./unsealed.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := parseMeta(logMetaFlag)
		if err != nil {
			return err
		}
		req := sdk.RecordRequest{
			Action:    args[0],
			DataHash:  logDataHashFlag,
			EventType: logEventTypeFlag,
			Metadata:  meta,
		}

		c := client()
		if logBufferFlag != "" {
			buf, err := sdk.NewUnsealedBuffer(logBufferFlag)
			if err != nil {
				return err
			}
			c = sdk.New(addrFlag, sdk.WithUnsealedBuffer(buf))
			receipt, err := c.RecordBuffered(cmd.Context(), req)
			if errors.Is(err, sdk.ErrUnsealed) {
				fmt.Println("UNSEALED: daemon unreachable, event buffered (no lock_hash)")
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(receipt)
		}

		receipt, err := c.Record(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(receipt)
	},
}

func init() {
	logCmd.Flags().StringVar(&logDataHashFlag, "data-hash", "", "caller-computed digest of the attested payload")
	logCmd.Flags().StringVar(&logEventTypeFlag, "event-type", "", "event type (INGEST, PARSING, ORCHESTRATION, ENGINE_EXEC, CRITIC_VAL, WORM_SEAL, GENERIC)")
	logCmd.Flags().StringArrayVar(&logMetaFlag, "meta", nil, "metadata key=value (repeatable)")
	logCmd.Flags().StringVar(&logBufferFlag, "buffer", "", "unsealed buffer file for offline operation")
	rootCmd.AddCommand(logCmd)
}
