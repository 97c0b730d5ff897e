package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"parley/internal/server"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Run: func(cmd *cobra.Command, args []string) {
		s := server.New()
		s.RegisterRoutes(context.Background())

		addr := addrFlag
		if addr == "" {
			addr = s.Cfg.Addr
		}
		s.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides PARLEY_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
