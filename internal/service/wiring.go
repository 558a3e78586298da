package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/config"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
	"github.com/zzenonn/zpicker/internal/placement"
	"github.com/zzenonn/zpicker/internal/repository/db"
	"github.com/zzenonn/zpicker/internal/repository/objectstore"
	"github.com/zzenonn/zpicker/internal/topology"
)

const (
	SourceDynamoDB   = "dynamodb"
	SourceFile       = "file"
	SourceStandalone = "none"
)

// EngineOptions maps configuration onto placement options.
func EngineOptions(cfg *config.Config) placement.Options {
	opts := placement.DefaultOptions()
	opts.MultiDatacenter = cfg.MultiDC
	opts.DefaultMaxSizeMB = cfg.DefaultMaxSizeMB
	opts.DefaultReplicas = cfg.DefaultReplicas
	return opts
}

// Thresholds maps configuration onto snapshot membership thresholds.
func Thresholds(cfg *config.Config) topology.Thresholds {
	return topology.Thresholds{
		MaxUtilizationPct:      cfg.MaxUtilizationPct,
		OperatorUtilizationPct: cfg.OperatorUtilizationPct,
		MaxRecordAge:           cfg.MaxRecordAge,
	}
}

// NewSource builds the topology source selected by cfg.Source. It returns a
// nil source for standalone mode.
func NewSource(ctx context.Context, cfg *config.Config) (topology.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case SourceStandalone, "":
		return nil, nil
	case SourceDynamoDB:
		if cfg.DynamoDBTable == "" {
			return nil, zerrors.ConfigNotSetError("dynamodb_table")
		}
		database, err := db.NewDatabase(cfg.AwsConfig, cfg.DynamoDBTable)
		if err != nil {
			return nil, err
		}
		repo := db.NewNodeRepository(database.Client, cfg.DynamoDBTable)
		return &repo, nil
	case SourceFile:
		if cfg.TopologyFile == "" {
			return nil, zerrors.ConfigNotSetError("topology_file")
		}
		repo := objectstore.NewLocalObjectRepository("")
		return objectstore.NewDocumentSource(&repo, cfg.TopologyFile), nil
	}

	loc, err := objectstore.ParseLocation(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid topology source %q: %w", cfg.Source, err)
	}
	if loc.Key == "" {
		return nil, fmt.Errorf("topology source %q names no object", cfg.Source)
	}
	repo, err := objectstore.NewObjectRepositoryFactory(cfg.AwsConfig).CreateRepository(ctx, loc)
	if err != nil {
		return nil, err
	}
	return objectstore.NewDocumentSource(repo, loc.Key), nil
}

// NewPickerServiceFromConfig wires engine, source, refresher and snapshot
// archiving from configuration. The refresher is not started.
func NewPickerServiceFromConfig(ctx context.Context, cfg *config.Config) (*PickerService, error) {
	engine := placement.NewEngine(EngineOptions(cfg))

	source, err := NewSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var refresher TopologyRefresher
	if source != nil {
		refresher = topology.NewRefresher(source, engine, topology.RefresherOptions{
			Interval:   cfg.RefreshInterval,
			Thresholds: Thresholds(cfg),
		})
	} else {
		log.Info("No topology source configured, running standalone")
	}

	svc := NewPickerService(engine, refresher)

	if cfg.SnapshotDump != "" {
		loc, err := objectstore.ParseLocation(cfg.SnapshotDump)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot_dump %q: %w", cfg.SnapshotDump, err)
		}
		repo, err := objectstore.NewObjectRepositoryFactory(cfg.AwsConfig).CreateRepository(ctx, loc)
		if err != nil {
			return nil, err
		}
		svc.OnInstall(objectstore.NewSnapshotSink(repo, loc.Key).Listener())
	}

	return svc, nil
}
