package cmd

import "github.com/spf13/cobra"

var (
	rootCmd = &cobra.Command{
		Use:   "sselay",
		Short: "A pub/sub to Server-Sent-Events relay",
		Long:  `Sselay bridges a publish/subscribe bus to long-lived HTTP connections, delivering published chunks as SSE frames`,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
