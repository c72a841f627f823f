package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var (
	askDomain string
	askTopK   int
	askUseLLM bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Retrieve context and optionally answer a question with an LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		res, err := r.Ask(context.Background(), args[0], askDomain, askTopK, askUseLLM)
		if err != nil {
			return err
		}
		if res.Answer != "" {
			fmt.Println(res.Answer)
			fmt.Println()
		}
		fmt.Println("Sources:")
		for _, s := range res.Sources {
			fmt.Println(" ", s)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askDomain, "domain", "", "restrict retrieval to one domain")
	askCmd.Flags().IntVar(&askTopK, "top", 10, "maximum primary candidates before graph expansion")
	askCmd.Flags().BoolVar(&askUseLLM, "llm", true, "call the configured LLM provider for an answer")
	rootCmd.AddCommand(askCmd)
}
