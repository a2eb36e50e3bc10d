package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/kozaktomas/face-auth/internal/biometric"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify FILE",
	Short: "Identify the person in a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Float64("tolerance", -1, "Match tolerance (overrides MATCH_TOLERANCE)")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if tolerance := mustGetFloat64(cmd, "tolerance"); tolerance >= 0 {
		cfg.Matcher.Tolerance = tolerance
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := newService(cfg, store, log).Authenticate(ctx, data)
	if errors.Is(err, biometric.ErrNoUsersEnrolled) {
		fmt.Println("No users enrolled")
		return nil
	}
	if err != nil {
		return err
	}

	switch r := result.(type) {
	case facematch.Matched:
		fmt.Printf("Matched user %d: %s (access level %d, distance %.4f)\n",
			r.Identity.ID, r.Identity.DisplayName, r.Identity.AccessLevel, r.Distance)
	case facematch.NotFound:
		if math.IsInf(r.BestDistance, 1) {
			fmt.Printf("Not recognized (no comparable descriptors)\n")
		} else {
			fmt.Printf("Not recognized (best distance %.4f over %d users, tolerance %.2f)\n",
				r.BestDistance, r.Compared, cfg.Matcher.Tolerance)
		}
	}
	return nil
}
