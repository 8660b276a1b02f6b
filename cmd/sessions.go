package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored session submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		phaseName, _ := cmd.Flags().GetString("phase")
		limit, _ := cmd.Flags().GetInt("limit")

		opts := store.QueryOpts{Limit: limit}
		if phaseName != "" {
			p, err := session.ParsePhase(phaseName)
			if err != nil {
				return err
			}
			opts.Phase = p
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.Sessions().List(cmd.Context(), opts)
		if err != nil {
			return err
		}

		// Header.
		fmt.Printf("%5s  %-36s  %-8s  %-12s  %-6s  %-10s  %6s  %s\n",
			"SEQ", "ID", "Phase", "Worker", "Delay", "Outcome", "Trials", "Submitted")
		fmt.Println(strings.Repeat("─", 115))

		for _, r := range rows {
			worker := r.WorkerID
			if len(worker) > 12 {
				worker = worker[:9] + "..."
			}
			fmt.Printf("%5d  %-36s  %-8s  %-12s  %-6s  %-10s  %6d  %s\n",
				r.Sequence, r.ID, r.Phase, worker, r.DelayGroup, r.Outcome, r.Trials,
				r.SubmittedAt.Local().Format("2006-01-02 15:04"))
		}

		fmt.Printf("\n%d sessions\n", len(rows))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored session record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withTrials, _ := cmd.Flags().GetBool("trials")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.Sessions().Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session %q", args[0])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if !withTrials {
			return enc.Encode(rec)
		}

		trials, err := st.Sessions().Trials(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rec.Trials = nil
		if err := enc.Encode(rec); err != nil {
			return err
		}

		fmt.Printf("\n%5s  %-32s  %-10s  %-8s  %-32s  %6s  %s\n",
			"#", "Stimulus", "Condition", "Kind", "Response", "RT", "Correct")
		fmt.Println(strings.Repeat("─", 110))
		for _, tr := range trials {
			correct := "-"
			if tr.Correct != nil {
				correct = fmt.Sprint(*tr.Correct)
			}
			fmt.Printf("%5d  %-32s  %-10s  %-8s  %-32s  %6d  %s\n",
				tr.Index, tr.Stimulus.ID, tr.Stimulus.Condition, tr.ResponseKind, tr.Response,
				tr.ReactionTimeMs, correct)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one stored session and its trials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Sessions().Delete(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no session %q", args[0])
			}
			return err
		}
		logger.Info("session deleted", zap.String("session_id", args[0]))
		fmt.Println("deleted", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.Flags().String("phase", "", "Only list this phase")
	sessionsCmd.Flags().Int("limit", 50, "Max sessions to list (0 = all)")
	sessionsShowCmd.Flags().Bool("trials", false, "Print the stored trial rows as a table")

	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
