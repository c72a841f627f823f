package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report the store's invariant violations without modifying it",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		rpt, err := r.Verify()
		if err != nil {
			return err
		}
		fmt.Printf("orphan edges: %d\n", len(rpt.OrphanEdges))
		fmt.Printf("stale processed: %d\n", len(rpt.StaleProcessed))
		fmt.Printf("embedding mismatches: %v\n", rpt.EmbeddingMismatches)
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Drop orphaned edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		n, err := r.Repair()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d orphaned edges\n", n)
		return nil
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Drop orphaned edges and stale processed records",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		rpt, err := r.GC()
		if err != nil {
			return err
		}
		fmt.Printf("orphan edges removed=%d stale processed removed=%d\n", rpt.OrphanEdgesRemoved, rpt.StaleProcessedRemoved)
		return nil
	},
}

var reindexDomain string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild a domain's (or every domain's) embeddings from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		return r.Reindex(context.Background(), reindexDomain)
	},
}

func init() {
	reindexCmd.Flags().StringVar(&reindexDomain, "domain", "", "domain to reindex (default: every domain)")
	rootCmd.AddCommand(verifyCmd, repairCmd, gcCmd, reindexCmd)
}
