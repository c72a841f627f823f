package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/pkg/ragdag"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new .ragdag store in the target directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Init(storeDir)
		if err != nil {
			return err
		}
		fmt.Println("initialized", r.StoreRoot())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
