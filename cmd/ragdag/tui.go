package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/internal/tui"
	"github.com/kxddry/ragdag/pkg/ragdag"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive query and browse session over the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		sum, err := r.Graph("")
		if err != nil {
			return err
		}
		summary := fmt.Sprintf("%d domains, %d documents, %d chunks, %d edges", sum.Domains, sum.Documents, sum.Chunks, sum.Edges)
		m := tui.New(r, summary)
		return tea.NewProgram(m).Start()
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
