// Command statsd runs the stats-receiver adapter shared by the pool and
// proxy roles: a TCP ingest for pushed snapshots plus an HTTP API
// exposing the last one received.
package main

import (
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hashpool/hashpool/config"
	"github.com/hashpool/hashpool/stats"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath, role string
	root := &cobra.Command{
		Use:   "statsd",
		Short: "run the hashpool stats receiver for the pool or proxy role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "pool" && role != "proxy" {
				return errors.New("--role must be \"pool\" or \"proxy\"")
			}
			return run(config.ConfigPathOrDefault(configPath, "statsd.toml"), role)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	root.Flags().StringVar(&role, "role", "", "pool or proxy")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, role string) error {
	log := logrus.NewEntry(logrus.StandardLogger()).WithField("role", role)

	var cfg config.Stats
	if err := config.Load(configPath, &cfg); err != nil {
		log.WithError(err).Fatal("statsd: failed to load config")
	}

	receiver := stats.NewReceiver(time.Duration(cfg.StalenessSeconds)*time.Second, log.WithField("component", "receiver"))

	lis, err := net.Listen("tcp", cfg.Listen.TCPAddr)
	if err != nil {
		log.WithError(err).Fatal("statsd: failed to listen on TCP ingest")
	}
	go func() {
		if err := receiver.ServeTCP(lis); err != nil {
			log.WithError(err).Warn("statsd: TCP accept loop exited")
		}
	}()

	httpServer := &http.Server{Addr: cfg.Listen.HTTPAddr, Handler: receiver.Router()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("statsd: HTTP server exited")
		}
	}()

	log.WithFields(logrus.Fields{"tcp_addr": cfg.Listen.TCPAddr, "http_addr": cfg.Listen.HTTPAddr}).Info("statsd: listening")
	waitForSignal()
	lis.Close()
	httpServer.Close()
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
