// Command poold runs the Pool role: it accepts downstream proxy
// connections, bridges accepted shares into mint-quote requests over the
// hub, and pushes periodic stats snapshots.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hashpool/hashpool/config"
	"github.com/hashpool/hashpool/hub"
	"github.com/hashpool/hashpool/poolcore"
	"github.com/hashpool/hashpool/stats"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath string
	root := &cobra.Command{
		Use:   "poold",
		Short: "run the hashpool Pool role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.ConfigPathOrDefault(configPath, "poold.toml"))
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	var cfg config.Pool
	if err := config.Load(configPath, &cfg); err != nil {
		log.WithError(err).Fatal("poold: failed to load config")
	}

	statsReg := stats.NewDownstreamRegistry()

	h := hub.New(hub.Config{
		MintAddr:       cfg.Mint.Addr,
		RequestBuffer:  cfg.Mint.RequestBuffer,
		ResponseBuffer: cfg.Mint.ResponseBuffer,
		DialTimeout:    time.Duration(cfg.Mint.DialTimeoutMS) * time.Millisecond,
	}, log.WithField("component", "hub"))
	go h.Run()
	defer h.Close()

	bridge := poolcore.NewBridge(poolcore.Config{
		MinimumDifficulty: cfg.Share.MinimumDifficulty,
		StaleTimeout:      time.Duration(cfg.Share.StaleTimeoutMS) * time.Millisecond,
		SweepInterval:     time.Duration(cfg.Share.SweepIntervalMS) * time.Millisecond,
		ListenAddr:        cfg.Listen.Addr,
	}, h, statsReg, log.WithField("component", "bridge"))
	defer bridge.Close()

	go bridge.RunResponseDispatcher()
	go bridge.RunStaleSweep()

	if cfg.Stats.ReceiverAddr != "" {
		poller := stats.NewPoller(stats.ProviderFunc(bridge.GetSnapshot), cfg.Stats.ReceiverAddr,
			time.Duration(cfg.Stats.IntervalSeconds)*time.Second, log.WithField("component", "stats-poller"))
		done := make(chan struct{})
		defer close(done)
		go poller.Run(done)
	}

	lis, err := net.Listen("tcp", cfg.Listen.Addr)
	if err != nil {
		log.WithError(err).Fatal("poold: failed to listen")
	}
	server := poolcore.NewServer(bridge, log.WithField("component", "server"))

	go func() {
		if err := server.Serve(lis); err != nil {
			log.WithError(err).Warn("poold: accept loop exited")
		}
	}()

	log.WithField("addr", cfg.Listen.Addr).Info("poold: listening")
	waitForSignal()
	lis.Close()
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
