package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var graphDomain string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Summarize domain/document/chunk/edge counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		sum, err := r.Graph(graphDomain)
		if err != nil {
			return err
		}
		fmt.Printf("domains=%d documents=%d chunks=%d edges=%d\n", sum.Domains, sum.Documents, sum.Chunks, sum.Edges)
		for t, n := range sum.EdgesByType {
			fmt.Printf("  %s: %d\n", t, n)
		}
		return nil
	},
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <node>",
	Short: "List a node's outgoing and incoming edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		edges, err := r.Neighbors(args[0])
		if err != nil {
			return err
		}
		for _, e := range edges {
			fmt.Printf("%s %s %s\n", e.Direction, e.Type, e.Other)
		}
		return nil
	},
}

var traceCmd = &cobra.Command{
	Use:   "trace <node>",
	Short: "Walk a chunk's provenance chain back to its origin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		hops, err := r.Trace(args[0])
		if err != nil {
			return err
		}
		for _, h := range hops {
			fmt.Printf("%s <-%s- %s\n", h.Node, h.EdgeType, h.Parent)
		}
		return nil
	},
}

var relateThreshold float64
var relateDomain string

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Compute related_to edges above a cosine threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		n, err := r.Relate(relateDomain, relateThreshold)
		if err != nil {
			return err
		}
		fmt.Printf("added %d related_to edges\n", n)
		return nil
	},
}

var linkType string

var linkCmd = &cobra.Command{
	Use:   "link <source> <target>",
	Short: "Append a trusted edge between two nodes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		return r.Link(args[0], args[1], linkType)
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphDomain, "domain", "", "restrict directory/document/chunk counts to one domain")
	relateCmd.Flags().StringVar(&relateDomain, "domain", "", "restrict relate to one domain")
	relateCmd.Flags().Float64Var(&relateThreshold, "threshold", 0.8, "minimum cosine similarity for a related_to edge")
	linkCmd.Flags().StringVar(&linkType, "type", "references", "edge type: chunked_from, derived_via, related_to, references")

	rootCmd.AddCommand(graphCmd, neighborsCmd, traceCmd, relateCmd, linkCmd)
}
