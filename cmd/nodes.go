package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zzenonn/zpicker/internal/domain"
	"github.com/zzenonn/zpicker/internal/repository/db"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "List every storage node report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := startPicker(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		nodes, err := svc.Topology(cmd.Context())
		if err != nil {
			return err
		}

		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].Datacenter != nodes[j].Datacenter {
				return nodes[i].Datacenter < nodes[j].Datacenter
			}
			return nodes[i].ID < nodes[j].ID
		})

		fmt.Printf("%-12s %-32s %12s %8s\n", "DATACENTER", "STORAGE ID", "AVAILABLE MB", "USED %")
		for _, n := range nodes {
			fmt.Printf("%-12s %-32s %12d %8.2f\n", n.Datacenter, n.ID, n.AvailableMB, n.PercentUsed)
		}
		return nil
	},
}

var nodeCmd = &cobra.Command{
	Use:   "node [storage-id]",
	Short: "Show one storage node report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := startPicker(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		n, err := svc.Node(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Storage ID:   %s\n", n.ID)
		fmt.Printf("Datacenter:   %s\n", n.Datacenter)
		fmt.Printf("Available MB: %d\n", n.AvailableMB)
		fmt.Printf("Used:         %.2f%%\n", n.PercentUsed)
		if !n.Timestamp.IsZero() {
			fmt.Printf("Reported:     %s\n", n.Timestamp.Format(time.RFC3339))
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [storage-id] [datacenter] [available-mb] [percent-used]",
	Short: "Publish a storage node capacity report to the registry table",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := parseNodeReport(args, time.Now().UTC())
		if err != nil {
			return err
		}

		repo, err := nodeRepository()
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		node, err = repo.PutNode(cmd.Context(), node)
		if err != nil {
			return fmt.Errorf("error registering storage node: %w", err)
		}
		fmt.Printf("Storage node registered successfully: %s (%s)\n", node.ID, node.Datacenter)
		return nil
	},
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister [storage-id]",
	Short: "Remove a storage node from the registry table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := nodeRepository()
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}

		if err := repo.DeleteNode(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("error deregistering storage node: %w", err)
		}
		fmt.Printf("Storage node deregistered successfully: %s\n", args[0])
		return nil
	},
}

// parseNodeReport builds a record from register's positional arguments.
func parseNodeReport(args []string, now time.Time) (domain.StorageNode, error) {
	availableMB, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || availableMB < 0 {
		return domain.StorageNode{}, fmt.Errorf("invalid available MB %q", args[2])
	}
	percentUsed, err := strconv.ParseFloat(args[3], 64)
	if err != nil || math.IsNaN(percentUsed) || percentUsed < 0 || percentUsed > 100 {
		return domain.StorageNode{}, fmt.Errorf("invalid percent used %q", args[3])
	}

	return domain.StorageNode{
		ID:          args[0],
		Datacenter:  args[1],
		AvailableMB: availableMB,
		PercentUsed: percentUsed,
		Timestamp:   now,
	}, nil
}

func nodeRepository() (*db.NodeRepository, error) {
	dynamoDb, err := db.NewDatabase(cfg.AwsConfig, cfg.DynamoDBTable)
	if err != nil {
		return nil, err
	}
	repo := db.NewNodeRepository(dynamoDb.Client, cfg.DynamoDBTable)
	return &repo, nil
}

func init() {
	rootCmd.AddCommand(topologyCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(deregisterCmd)
}
