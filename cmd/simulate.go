package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/trial"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a session with a synthetic subject on a virtual clock",
	Long: `Simulate drives one session to completion without a terminal UI. The
synthetic subject answers size judgments correctly with probability
--accuracy and clicks a random image in recognition trials. The finished
record is printed as JSON and stored with --submit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		phaseName, _ := cmd.Flags().GetString("phase")
		seed, _ := cmd.Flags().GetUint64("seed")
		accuracy, _ := cmd.Flags().GetFloat64("accuracy")
		code, _ := cmd.Flags().GetString("code")
		tagName, _ := cmd.Flags().GetString("tag")
		workerID, _ := cmd.Flags().GetString("worker-id")
		submit, _ := cmd.Flags().GetBool("submit")

		p, err := session.ParsePhase(phaseName)
		if err != nil {
			return err
		}
		if accuracy < 0 || accuracy > 1 {
			return fmt.Errorf("--accuracy %v: must be within [0, 1]", accuracy)
		}
		doc, err := cfg.Document()
		if err != nil {
			return err
		}

		start := time.Now()
		opts, err := sessionOptions(p, doc, newSource(seed), workerID, start)
		if err != nil {
			return err
		}
		ctx, err := session.NewContext(opts)
		if err != nil {
			return err
		}

		if ctx.NeedsEntry() {
			if code == "" {
				if code, err = mintEntry(p, tagName, opts, start); err != nil {
					return err
				}
			}
			res, err := ctx.ValidateEntry(code, start)
			if err != nil {
				return err
			}
			if !res.Valid() {
				return fmt.Errorf("entry code rejected: %s", res.Message())
			}
		}

		subject := newSubject(ctx, newSource(subjectSeed(seed)), accuracy, start)
		if _, err := trial.Replay(ctx, start, subject.respond); err != nil {
			return err
		}
		if !ctx.Done() {
			return fmt.Errorf("simulation stalled with the sequence unfinished")
		}

		rec, err := ctx.WrapUp("", subject.last.Add(2*time.Second))
		if err != nil {
			return err
		}

		if submit {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Sessions().Submit(cmd.Context(), rec); err != nil {
				return err
			}
			logger.Info("simulated session submitted", zap.String("session_id", rec.ID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	simulateCmd.Flags().String("phase", string(session.PhaseEncode), "Session to simulate: encode, return or checkin")
	simulateCmd.Flags().Uint64("seed", 0, "Random seed (0 = random)")
	simulateCmd.Flags().Float64("accuracy", 0.9, "Probability of a correct size judgment")
	simulateCmd.Flags().String("code", "", "Entry code; a valid one is minted when empty")
	simulateCmd.Flags().String("tag", string(accesscode.TagShort), "Tag of the minted return code: short or long")
	simulateCmd.Flags().String("worker-id", "", "Subject id")
	simulateCmd.Flags().Bool("submit", false, "Store the simulated record")
}

// mintEntry mints an entry code for phase p that is valid at now.
func mintEntry(p session.Phase, tagName string, opts session.Options, now time.Time) (string, error) {
	family, tag := accesscode.ReturnSession, accesscode.Tag(tagName)
	if p == session.PhaseCheckIn {
		family, tag = accesscode.CheckIn, accesscode.TagCheckIn
	}
	codec := accesscode.New(family, opts.Year, opts.Location)
	return codec.Encode(now.Add(-time.Minute), now.Add(time.Hour), tag)
}

// subject answers trials like a participant with a fixed accuracy.
type subject struct {
	ctx      *session.Context
	rng      *rand.Rand
	accuracy float64
	last     time.Time
}

func newSubject(ctx *session.Context, rng *rand.Rand, accuracy float64, start time.Time) *subject {
	return &subject{ctx: ctx, rng: rng, accuracy: accuracy, last: start}
}

func (s *subject) respond(show trial.ShowStimulus, onset time.Time) []trial.Event {
	at := onset.Add(time.Duration(300+s.rng.IntN(600)) * time.Millisecond)
	s.last = at

	if s.ctx.Sequencer().Config().Input == trial.InputClick {
		if len(show.Stimulus.Assets) == 0 {
			return nil
		}
		return []trial.Event{trial.Clicked{Element: s.rng.IntN(len(show.Stimulus.Assets)), At: at}}
	}

	keys := s.ctx.Assignment().KeyMapping
	key := keys.KeyFor(show.Stimulus.Condition)
	if key == "" || s.rng.Float64() >= s.accuracy {
		for k := range keys {
			if k != key {
				key = k
				break
			}
		}
	}
	return []trial.Event{trial.KeyPressed{Key: key, At: at}}
}
