/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/logging"
	"github.com/wikistore/cosbackend/internal/mq"
	"github.com/wikistore/cosbackend/internal/purge"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes CDN purge tasks from the queue",
	Long: `Consumes CDN purge tasks published by the server. Only needed when
QUEUE_PROVIDER is rabbitmq or pubsub. Usage:

	cosbackend worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		log := logging.New(cfg.Log)

		if cfg.Queue.Provider == "" || cfg.Queue.Provider == config.QueueInline {
			log.Fatal().Msg("the inline queue is consumed by the server; set QUEUE_PROVIDER to rabbitmq or pubsub")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open queue")
		}
		defer queue.Close()

		cdn, err := purge.NewCDNClient(cfg.CDN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create cdn client")
		}

		log.Info().Str("queue", cfg.Queue.Provider).Str("channel", cfg.Queue.Channel).Msg("purge worker started")
		if err := purge.NewWorker(cdn, log).Run(ctx, queue, cfg.Queue.Channel); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("purge worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
