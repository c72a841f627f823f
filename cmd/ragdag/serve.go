package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kxddry/ragdag/internal/httpapi"
	"github.com/kxddry/ragdag/internal/mcpserver"
	"github.com/kxddry/ragdag/pkg/ragdag"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := httpapi.ParsePort(strconv.Itoa(servePort)); err != nil {
			return err
		}
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		engine := httpapi.New(r, r.Log)
		return engine.Run(fmt.Sprintf(":%d", servePort))
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := ragdag.Open(storeDir)
		if err != nil {
			return err
		}
		server := mcpserver.New(r)
		return runMCPStdio(context.Background(), server)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8420, "HTTP listen port")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
