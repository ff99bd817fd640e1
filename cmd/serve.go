package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ravel-org/sselay/internal/api"
	"github.com/ravel-org/sselay/internal/bus"
	"github.com/ravel-org/sselay/internal/core"
	"github.com/ravel-org/sselay/internal/sse"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sselay server",

	Run: func(cmd *cobra.Command, args []string) {
		config, err := core.NewConfig()
		if err != nil {
			log.Fatalln(err)
		}

		var b sse.Bus
		if config.Broker.URL != "" {
			pb, err := bus.NewPulsar(bus.PulsarOptions{
				URL:         config.Broker.URL,
				StreamTopic: config.Broker.Topic,
				Name:        config.ID,
			})
			if err != nil {
				log.Fatalln(err)
			}
			b = pb
		} else {
			b = bus.NewMemory()
		}

		app := api.New(config, b)

		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			app.Close()
			os.Exit(0)
		}()

		log.Fatal(app.Listen())
	},
}
