package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List enrolled users",
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := newService(cfg, store, log).Users(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOME\tNIVEL")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%d\n", u.ID, u.DisplayName, u.AccessLevel)
	}
	return w.Flush()
}
