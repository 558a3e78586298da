package main

import (
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/zzenonn/zpicker/internal/domain"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run many placements and report how picks spread over nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		iterations, _ := cmd.Flags().GetInt("iterations")
		size, _ := cmd.Flags().GetFloat64("size")
		replicas, _ := cmd.Flags().GetInt("replicas")
		operator, _ := cmd.Flags().GetBool("operator")
		quiet, _ := cmd.Flags().GetBool("quiet")

		if iterations <= 0 {
			return fmt.Errorf("iterations must be positive, got %d", iterations)
		}

		svc, err := startPicker(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		req := domain.ChooseRequest{SizeMB: size, Replicas: replicas, IsOperator: operator}

		var bar *progressbar.ProgressBar
		if !quiet {
			bar = progressbar.Default(int64(iterations), "choosing")
		}

		nodeCounts := map[string]int{}
		dcCounts := map[string]int{}
		failures := 0
		for i := 0; i < iterations; i++ {
			sets, err := svc.Choose(req)
			if err != nil {
				failures++
			}
			for _, set := range sets {
				for _, h := range set {
					nodeCounts[h.Datacenter+"/"+h.NodeID]++
					dcCounts[h.Datacenter]++
				}
			}
			if bar != nil {
				bar.Add(1)
			}
		}
		if bar != nil {
			bar.Finish()
			fmt.Println()
		}

		fmt.Printf("%d placements, %d failed\n\n", iterations, failures)
		printCounts("DATACENTER", dcCounts)
		fmt.Println()
		printCounts("STORAGE NODE", nodeCounts)
		return nil
	},
}

func printCounts(header string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, c := range counts {
		keys = append(keys, k)
		total += c
	}
	sort.Strings(keys)

	fmt.Printf("%-40s %10s %8s\n", header, "PICKS", "SHARE")
	for _, k := range keys {
		fmt.Printf("%-40s %10d %7.2f%%\n", k, counts[k], 100*float64(counts[k])/float64(total))
	}
}

func init() {
	benchCmd.Flags().Int("iterations", 10000, "Number of placements to run")
	benchCmd.Flags().Float64("size", 1, "Object size in MB")
	benchCmd.Flags().Int("replicas", 0, "Copies per replica set (0 uses default_replicas)")
	benchCmd.Flags().Bool("operator", false, "Use the operator utilization threshold")
	benchCmd.Flags().BoolP("quiet", "q", false, "Suppress progress bar")
	rootCmd.AddCommand(benchCmd)
}
