// Command dashboardd runs the web dashboard adapter shared by the pool
// and proxy roles: it polls a stats-receiver over HTTP and re-serves the
// cached snapshot to browsers.
package main

import (
	"errors"
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
		Use:   "dashboardd",
		Short: "run the hashpool web dashboard for the pool or proxy role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "pool" && role != "proxy" {
				return errors.New("--role must be \"pool\" or \"proxy\"")
			}
			return run(config.ConfigPathOrDefault(configPath, "dashboardd.toml"), role)
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

	var cfg config.Dashboard
	if err := config.Load(configPath, &cfg); err != nil {
		log.WithError(err).Fatal("dashboardd: failed to load config")
	}

	dashboard := stats.NewDashboard(cfg.Upstream.StatsURL,
		time.Duration(cfg.Upstream.ClientTimeoutMS)*time.Millisecond, log.WithField("component", "dashboard"))

	done := make(chan struct{})
	go dashboard.Run(time.Duration(cfg.Upstream.PollSeconds)*time.Second, done)

	httpServer := &http.Server{Addr: cfg.Listen.HTTPAddr, Handler: dashboard.Router()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("dashboardd: HTTP server exited")
		}
	}()

	log.WithField("http_addr", cfg.Listen.HTTPAddr).Info("dashboardd: listening")
	waitForSignal()
	close(done)
	httpServer.Close()
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
