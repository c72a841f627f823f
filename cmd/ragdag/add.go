package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var (
	addDomain string
	addEmbed  bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Ingest a file or directory into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		res, err := r.Add(context.Background(), args[0], addDomain, addEmbed)
		if err != nil {
			return err
		}
		fmt.Printf("files=%d chunks=%d skipped=%d\n", res.Files, res.Chunks, res.Skipped)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addDomain, "domain", "", `domain name, or "auto" to apply domain rules`)
	addCmd.Flags().BoolVar(&addEmbed, "embed", true, "embed newly ingested chunks immediately")
	rootCmd.AddCommand(addCmd)
}
