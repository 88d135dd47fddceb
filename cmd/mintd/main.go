// Command mintd runs the Mint role: it accepts mint-quote requests from
// the Pool's hub connection and issues quotes backed by an embedded bbolt
// store.
package main

import (
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
	"github.com/hashpool/hashpool/mintcore"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath string
	root := &cobra.Command{
		Use:   "mintd",
		Short: "run the hashpool Mint role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.ConfigPathOrDefault(configPath, "mintd.toml"))
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	var cfg config.Mint
	if err := config.Load(configPath, &cfg); err != nil {
		log.WithError(err).Fatal("mintd: failed to load config")
	}

	store, err := mintcore.OpenStore(cfg.Store.Path)
	if err != nil {
		log.WithError(err).Fatal("mintd: failed to open quote store")
	}
	defer store.Close()

	ttl := time.Duration(cfg.Quote.TTLSeconds) * time.Second
	signer := mintcore.NewUUIDSigner(ttl)

	server := mintcore.NewServer(store, signer, log.WithField("component", "server"))

	lis, err := net.Listen("tcp", cfg.Listen.Addr)
	if err != nil {
		log.WithError(err).Fatal("mintd: failed to listen")
	}

	go func() {
		if err := server.Serve(lis); err != nil {
			log.WithError(err).Warn("mintd: accept loop exited")
		}
	}()

	var httpServer *http.Server
	if cfg.Listen.HTTPAddr != "" {
		api := mintcore.NewKeysetAPI(store, log.WithField("component", "keyset-api"))
		httpServer = &http.Server{Addr: cfg.Listen.HTTPAddr, Handler: api.Router()}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("mintd: keyset HTTP server exited")
			}
		}()
	}

	log.WithField("addr", cfg.Listen.Addr).Info("mintd: listening")
	waitForSignal()
	lis.Close()
	if httpServer != nil {
		httpServer.Close()
	}
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
