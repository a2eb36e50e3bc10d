package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-auth/internal/biometric"
	"github.com/kozaktomas/face-auth/internal/fingerprint"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll FILE...",
	Short: "Register a user from one or more face photos",
	Long: `Register a user from face photos, the same way POST /registrar does.
Each photo creates one record; photos without exactly one face are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Display name of the user (required)")
	enrollCmd.Flags().Int("level", 0, "Access level of the user")
	enrollCmd.Flags().Bool("fail-fast", false, "Stop at the first photo that cannot be enrolled")
	_ = enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name := mustGetString(cmd, "name")
	level := mustGetInt(cmd, "level")
	failFast := mustGetBool(cmd, "fail-fast")

	ctx := context.Background()
	store, err := openStore(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()
	svc := newService(cfg, store, log)

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	var enrolled []string
	var failed []string
	for _, path := range args {
		reg, err := enrollFile(ctx, svc, path, name, level)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			if failFast || !isSkippable(err) {
				return fmt.Errorf("%s: %w", path, err)
			}
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		enrolled = append(enrolled, fmt.Sprintf("%s -> id %d", filepath.Base(path), reg.Identity.ID))
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	for _, line := range enrolled {
		fmt.Printf("Enrolled %s\n", line)
	}
	for _, line := range failed {
		fmt.Printf("Skipped %s\n", line)
	}
	fmt.Printf("%d enrolled, %d skipped\n", len(enrolled), len(failed))
	return nil
}

func enrollFile(ctx context.Context, svc *biometric.Service, path, name string, level int) (*biometric.Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return svc.Register(ctx, biometric.RegisterInput{Name: name, Level: level, Image: data})
}

// isSkippable reports whether enrolling can continue with the next photo.
func isSkippable(err error) bool {
	return errors.Is(err, fingerprint.ErrExtraction) || errors.Is(err, biometric.ErrEmptyImage) || errors.Is(err, os.ErrNotExist)
}
