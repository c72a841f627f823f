package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var (
	searchMode   string
	searchDomain string
	searchTopK   int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search chunks by keyword, vector, or hybrid mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		results, err := r.Search(context.Background(), searchMode, args[0], searchDomain, searchTopK)
		if err != nil {
			return err
		}
		for i, res := range results {
			fmt.Printf("%2d. %.4f  %s\n", i+1, res.Score, res.ChunkRelPath)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "keyword, vector, or hybrid (default from config)")
	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "restrict search to one domain")
	searchCmd.Flags().IntVar(&searchTopK, "top", 10, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
