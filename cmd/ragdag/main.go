// Command ragdag is the CLI front end over pkg/ragdag: one subcommand per
// library operation plus serve/mcp/tui for the presentation layers, built
// around github.com/spf13/cobra's command tree with godotenv.Load for
// environment configuration.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/internal/ragerr"
)

var storeDir string

var rootCmd = &cobra.Command{
	Use:   "ragdag",
	Short: "Flat-file knowledge graph engine for retrieval-augmented generation",
}

func main() {
	_ = godotenv.Load()
	rootCmd.PersistentFlags().StringVar(&storeDir, "dir", ".",
		"store directory (searches ancestors for .ragdag; RAGDAG_STORE overrides this)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to the process exit code: 2 for the
// operational taxonomy kinds (provider failure or unavailability, timeout,
// parse-unavailable, corrupt embeddings), 1 for every other kind and for any
// error that carries no taxonomy kind. Plain I/O errors carry no kind, so
// they exit 1, as bad flags and a missing store do.
func exitCodeFor(err error) int {
	kind, ok := ragerr.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case ragerr.KindProviderFailure, ragerr.KindProviderUnavailable, ragerr.KindTimeout,
		ragerr.KindParseUnavailable, ragerr.KindCorruptEmbeddings:
		return 2
	default:
		return 1
	}
}
