package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/zpicker/internal/config"
	"github.com/zzenonn/zpicker/internal/httpapi"
	"github.com/zzenonn/zpicker/internal/logging"
	"github.com/zzenonn/zpicker/internal/service"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "zpicker-server",
	Short: "Placement daemon serving storage node choices over HTTP",
	Long:  "Keeps a topology snapshot fresh and answers placement requests over HTTP",
	RunE:  serve,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config.yaml")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("listen-address", ":8080", "Address the HTTP API listens on")
	flags.Bool("multi-dc", true, "Require replica sets to span at least two datacenters")
	flags.String("source", "dynamodb", "Topology source: dynamodb, file, none, s3://bucket/key or gs://bucket/key")
	flags.String("dynamodb-table", "storage_nodes", "DynamoDB table holding storage node reports")
	flags.String("topology-file", "topology.json", "Topology document used by the file source")
	flags.String("snapshot-dump", "", "Archive installed snapshots under this location")
	flags.Duration("refresh-interval", 30*time.Second, "Topology refresh interval")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewPickerServiceFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build picker: %w", err)
	}
	svc.Start()
	defer svc.Close()

	server := httpapi.NewServer(svc, cfg.ListenAddress)
	if err := server.Start(); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"address":    cfg.ListenAddress,
		"source":     cfg.Source,
		"standalone": svc.Standalone(),
	}).Info("Placement server started")

	<-ctx.Done()
	log.Info("Shutting down placement server")
	return server.Stop()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
