package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
)

var chooseCmd = &cobra.Command{
	Use:   "choose",
	Short: "Choose storage nodes for an object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetFloat64("size")
		replicas, _ := cmd.Flags().GetInt("replicas")
		operator, _ := cmd.Flags().GetBool("operator")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, err := startPicker(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		sets, err := svc.Choose(domain.ChooseRequest{
			SizeMB:     size,
			Replicas:   replicas,
			IsOperator: operator,
		})
		if err != nil {
			var spaceErr *zerrors.InsufficientSpaceError
			if errors.As(err, &spaceErr) {
				return fmt.Errorf("no placement for %d MB: %s", spaceErr.SizeMB, spaceErr.Reason)
			}
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sets)
		}

		for i, set := range sets {
			label := "primary"
			if i > 0 {
				label = fmt.Sprintf("backup %d", i)
			}
			hosts := make([]string, len(set))
			for j, h := range set {
				hosts[j] = h.Datacenter + "/" + h.NodeID
			}
			fmt.Printf("%-9s %s\n", label, strings.Join(hosts, " "))
		}
		return nil
	},
}

func init() {
	chooseCmd.Flags().Float64("size", 0, "Object size in MB (0 uses default_max_size_mb)")
	chooseCmd.Flags().Int("replicas", 0, "Copies per replica set (0 uses default_replicas)")
	chooseCmd.Flags().Bool("operator", false, "Use the operator utilization threshold")
	chooseCmd.Flags().Bool("json", false, "Print the result as JSON")
	rootCmd.AddCommand(chooseCmd)
}
