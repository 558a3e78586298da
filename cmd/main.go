package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/zpicker/internal/config"
	"github.com/zzenonn/zpicker/internal/logging"
	"github.com/zzenonn/zpicker/internal/repository/db"
	"github.com/zzenonn/zpicker/internal/service"
)

const topologyWaitTimeout = 30 * time.Second

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "zpicker",
	Short: "Storage node placement for replicated objects",
	Long:  "Chooses sets of storage nodes spread across datacenters with room for an object",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config.yaml")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.Bool("multi-dc", true, "Require replica sets to span at least two datacenters")
	flags.String("source", "dynamodb", "Topology source: dynamodb, file, none, s3://bucket/key or gs://bucket/key")
	flags.String("dynamodb-table", "storage_nodes", "DynamoDB table holding storage node reports")
	flags.String("topology-file", "topology.json", "Topology document used by the file source")
	flags.String("snapshot-dump", "", "Archive installed snapshots under this location")
	flags.Float64("max-utilization-pct", 90, "Utilization limit for normal writes")
	flags.Float64("operator-utilization-pct", 92, "Utilization limit for operator writes")
	flags.Duration("max-record-age", 0, "Ignore storage node reports older than this (0 disables)")
	flags.Duration("refresh-interval", 30*time.Second, "Topology refresh interval")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the storage node table",
	RunE: func(cmd *cobra.Command, args []string) error {
		dynamoDb, err := db.NewDatabase(cfg.AwsConfig, cfg.DynamoDBTable)
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if err := dynamoDb.MigrateDb(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate the database: %w", err)
		}

		fmt.Println("Storage node table created successfully")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the storage node table",
	RunE: func(cmd *cobra.Command, args []string) error {
		dynamoDb, err := db.NewDatabase(cfg.AwsConfig, cfg.DynamoDBTable)
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if err := dynamoDb.MigrateDown(cmd.Context()); err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}

		fmt.Println("Storage node table dropped successfully")
		return nil
	},
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)
}

// startPicker builds the picker service and waits for its first snapshot.
// In standalone mode the snapshot stays empty.
func startPicker(ctx context.Context) (*service.PickerService, error) {
	svc, err := service.NewPickerServiceFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if svc.Standalone() {
		return svc, nil
	}

	svc.Start()

	waitCtx, cancel := context.WithTimeout(ctx, topologyWaitTimeout)
	defer cancel()
	if err := svc.WaitReady(waitCtx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
