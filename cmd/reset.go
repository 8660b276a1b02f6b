package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset deletes all stored sessions; pass --yes to confirm")
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		repo := st.Sessions()
		rows, err := repo.List(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := repo.Delete(cmd.Context(), r.ID); err != nil {
				return fmt.Errorf("delete %s: %w", r.ID, err)
			}
		}
		logger.Warn("sessions reset", zap.Int("deleted", len(rows)))
		fmt.Printf("deleted %d sessions\n", len(rows))
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deleting all sessions")
}
