// Package cli implements the trustctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veritas-dev/trust-ledger/pkg/sdk"
)

var addrFlag string

var rootCmd = &cobra.Command{
	Use:   "trustctl",
	Short: "trustctl - tamper-evident audit chain client",
	Long: `trustctl talks to the trust ledger daemon: commit audit events,
seal sensitive payloads, verify chain integrity and manage encryption
keys. Events buffered while the daemon was unreachable can be
resubmitted with "trustctl resubmit".`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "daemon address (default TRUST_ADDR or http://localhost:7400)")
}

func client() *sdk.Client {
	return sdk.New(addrFlag)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// parseMeta turns repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata pair %q, want key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}
