package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meshgate",
	Short: "Messaging gateway bridging WebSocket/WebTransport clients to a NATS bus",
}

var configOverlayPath string

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configOverlayPath, "config", "", "optional JSON config overlay file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(produceCmd)
	rootCmd.AddCommand(clientCmd)
}
