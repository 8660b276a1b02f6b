package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/app"
	"github.com/abhisek/trialgate/internal/randassign"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/stimuli"
)

// studyFlags are the per-run options of the study TUI.
type studyFlags struct {
	phase    string
	preview  bool
	stimuli  string
	assets   string
	seed     uint64
	workerID string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a study session in the terminal",
	Long: `Run one session of the study. Without --phase a menu asks which session
to run. Finished sessions are stored in the SQLite database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sf studyFlags
		sf.phase, _ = cmd.Flags().GetString("phase")
		sf.preview, _ = cmd.Flags().GetBool("preview")
		sf.stimuli, _ = cmd.Flags().GetString("stimuli")
		sf.assets, _ = cmd.Flags().GetString("assets")
		sf.seed, _ = cmd.Flags().GetUint64("seed")
		sf.workerID, _ = cmd.Flags().GetString("worker-id")
		return runStudy(cmd, sf)
	},
}

func init() {
	runCmd.Flags().String("phase", "", "Session to run: encode, return or checkin")
	runCmd.Flags().Bool("preview", false, "Show the study without running or submitting it")
	runCmd.Flags().String("stimuli", "", "Stimulus configuration file (JSON or YAML)")
	runCmd.Flags().String("assets", "", "Directory the stimulus paths resolve against")
	runCmd.Flags().Uint64("seed", 0, "Random seed for the assignment (0 = random)")
	runCmd.Flags().String("worker-id", "", "Subject id; fixes the delay group of encode sessions")
}

// sessionOptions builds the session options for phase p from the config.
func sessionOptions(p session.Phase, doc *stimuli.Document, src randassign.Source, workerID string, now time.Time) (session.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Phase:    p,
		Document: doc,
		Timing:   cfg.SessionTiming(),
		Policy:   cfg.GatePolicy(),
		CheckIn:  cfg.CheckInPolicy(),
		Year:     cfg.CodeYear(now),
		Location: loc,
		Source:   src,
		WorkerID: workerID,
		Now:      now,
		Logger:   logger,
	}, nil
}

// runStudy opens the store, builds the flow and launches the TUI.
func runStudy(cmd *cobra.Command, sf studyFlags) error {
	if sf.stimuli != "" {
		cfg.Study.StimuliFile = sf.stimuli
	}
	doc, err := cfg.Document()
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	newSession := func(p session.Phase) (*session.Context, error) {
		opts, err := sessionOptions(p, doc, newSource(sf.seed), sf.workerID, time.Now())
		if err != nil {
			return nil, err
		}
		return session.NewContext(opts)
	}

	f := &flow.Flow{
		Submitter:  st.Sessions(),
		NewSession: newSession,
		Preview:    sf.preview,
		AssetRoot:  sf.assets,
		Logger:     logger,
	}
	if sf.phase != "" {
		p, err := session.ParsePhase(sf.phase)
		if err != nil {
			return err
		}
		if f.Session, err = newSession(p); err != nil {
			return fmt.Errorf("start %s session: %w", p, err)
		}
	}

	logger.Info("study started", zap.String("phase", sf.phase), zap.Bool("preview", sf.preview))
	return app.Run(f)
}
