// Command translatord runs the Translator role: it maintains the upstream
// connection to the Pool, tracks issued quotes, and drives wallet
// redemption into proofs.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hashpool/hashpool/config"
	"github.com/hashpool/hashpool/stats"
	"github.com/hashpool/hashpool/translatorcore"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath string
	root := &cobra.Command{
		Use:   "translatord",
		Short: "run the hashpool Translator role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.ConfigPathOrDefault(configPath, "translatord.toml"))
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	var cfg config.Translator
	if err := config.Load(configPath, &cfg); err != nil {
		log.WithError(err).Fatal("translatord: failed to load config")
	}

	keypair, err := translatorcore.LoadOrCreateLockingKeypair(cfg.LockingKey.Path)
	if err != nil {
		log.WithError(err).Fatal("translatord: failed to load locking keypair")
	}

	walletStore, err := translatorcore.OpenWalletStore(cfg.Wallet.DBPath)
	if err != nil {
		log.WithError(err).Fatal("translatord: failed to open wallet store")
	}
	defer walletStore.Close()

	statsReg := stats.NewDownstreamRegistry()
	records := translatorcore.NewQuoteRecordMap()
	wallet := translatorcore.NoopWallet{}

	bridge := translatorcore.NewBridge(records, walletStore, wallet, keypair, statsReg, log.WithField("component", "bridge"))
	bridge.SetAddrs("", cfg.Upstream.Addr)

	client := translatorcore.NewClient(translatorcore.ClientConfig{
		UpstreamAddr: cfg.Upstream.Addr,
	}, bridge, log.WithField("component", "client"))
	go client.Run()
	defer client.Close()

	done := make(chan struct{})
	defer close(done)

	if cfg.Mint.URL != "" {
		keysets := translatorcore.NewKeysetClient(cfg.Mint.URL,
			time.Duration(cfg.Mint.ClientTimeoutMS)*time.Millisecond, log.WithField("component", "keyset-client"))
		go keysets.Run(bridge, done)
	} else {
		log.Warn("translatord: no mint url configured; quotes will be deferred until a keyset is acquired")
	}

	if cfg.Stats.ReceiverAddr != "" {
		poller := stats.NewPoller(stats.ProviderFunc(bridge.GetSnapshot), cfg.Stats.ReceiverAddr,
			time.Duration(cfg.Stats.IntervalSeconds)*time.Second, log.WithField("component", "stats-poller"))
		go poller.Run(done)
	}

	log.WithField("upstream", cfg.Upstream.Addr).Info("translatord: running")
	waitForSignal()
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
