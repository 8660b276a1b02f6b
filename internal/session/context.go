// Package session owns the state of one subject's visit: the random
// assignment, the trial sequencer, the accuracy gate and the codes entered
// and issued. Nothing here is process-global; each visit gets its own
// Context.
package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/gate"
	"github.com/abhisek/trialgate/internal/randassign"
	"github.com/abhisek/trialgate/internal/stimuli"
	"github.com/abhisek/trialgate/internal/trial"
)

// Response keys of the size judgment task.
const (
	KeyP = "p"
	KeyQ = "q"
)

// Timing overrides the trial timing presets. Zero fields keep the preset.
type Timing struct {
	LeadIn          []time.Duration
	StimulusVisible time.Duration
	AdvanceAfter    time.Duration
	ClickISI        time.Duration
}

// Options configures a new Context.
type Options struct {
	Phase    Phase
	Document *stimuli.Document
	Timing   Timing
	Policy   gate.Policy
	CheckIn  gate.CheckInPolicy

	// Year is the deployment year of every code read or minted.
	Year     int
	Location *time.Location

	Source   randassign.Source
	WorkerID string
	Now      time.Time
	Logger   *zap.Logger
}

// Context is the state of one visit.
type Context struct {
	phase   Phase
	doc     *stimuli.Document
	policy  gate.Policy
	checkIn gate.CheckInPolicy
	log     *zap.Logger

	entry   *accesscode.Codec
	returns *accesscode.Codec
	checkin *accesscode.Codec

	gate    *gate.Gate
	stim    []trial.Stimulus
	seq     *trial.Sequencer
	entered bool
	exit    gate.Exit
	record  Record
}

// NewContext draws the session's assignment and builds its trial sequence.
func NewContext(opts Options) (*Context, error) {
	if _, err := ParsePhase(string(opts.Phase)); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("session: random source is required")
	}
	doc := opts.Document
	if doc == nil {
		doc = stimuli.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if opts.Year == 0 {
		opts.Year = now.Year()
	}
	if opts.Policy == (gate.Policy{}) {
		opts.Policy = gate.DefaultPolicy()
	}
	if opts.CheckIn == (gate.CheckInPolicy{}) {
		opts.CheckIn = gate.DefaultCheckInPolicy()
	}

	c := &Context{
		phase:   opts.Phase,
		doc:     doc,
		policy:  opts.Policy,
		checkIn: opts.CheckIn,
		log:     log,
		returns: accesscode.New(accesscode.ReturnSession, opts.Year, opts.Location),
		checkin: accesscode.New(accesscode.CheckIn, opts.Year, opts.Location),
		gate:    gate.New(doc.Conditions()...),
		record: Record{
			ID:        uuid.NewString(),
			Phase:     opts.Phase,
			WorkerID:  opts.WorkerID,
			StartedAt: now,
		},
	}
	switch opts.Phase {
	case PhaseReturn:
		c.entry = c.returns
	case PhaseCheckIn:
		c.entry = c.checkin
	}

	var err error
	switch opts.Phase {
	case PhaseEncode:
		err = c.setupEncode(opts)
	case PhaseReturn:
		err = c.setupReturn(opts)
	case PhaseCheckIn:
		c.seq, err = trial.New(trial.ClickConfig(), nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", opts.Phase, err)
	}

	c.log.Info("session created",
		zap.String("session_id", c.record.ID),
		zap.String("phase", string(c.phase)),
		zap.Any("key_bindings", c.record.KeyMapping),
		zap.Strings("trial_order", c.record.TrialOrder),
		zap.Int("counterbalance", c.record.Counterbalance),
		zap.String("delay_group", string(c.record.DelayGroup)),
		zap.Int("trials", c.seq.Len()),
	)
	return c, nil
}

func (c *Context) setupEncode(opts Options) error {
	labels := c.doc.Conditions()
	if len(labels) != 2 {
		return fmt.Errorf("size judgment needs exactly 2 tracked conditions, got %d", len(labels))
	}

	ro := randassign.Options{
		KeyMappings: []randassign.KeyMapping{
			{KeyP: labels[0], KeyQ: labels[1]},
			{KeyP: labels[1], KeyQ: labels[0]},
		},
		TrialOrders: c.doc.TrialOrders,
	}
	if len(c.doc.TrialOrders) == 0 {
		ro.Counterbalance = len(stimuli.Exemplars)
	}
	a, err := randassign.Assign(opts.Source, ro)
	if err != nil {
		return err
	}
	a.DelayGroup, err = randassign.ByWorkerID(opts.Source,
		[]randassign.DelayGroup{randassign.DelayShort, randassign.DelayLong}, opts.WorkerID)
	if err != nil {
		return err
	}

	var stim []trial.Stimulus
	if len(a.TrialOrder) > 0 {
		stim = c.doc.SingleImageOrder(a.TrialOrder, stimuli.Exemplars[0])
	} else {
		stim, err = c.doc.CounterbalancedOrder(a.Counterbalance)
		if err != nil {
			return err
		}
		randassign.Shuffle(opts.Source, stim)
		for _, s := range stim {
			a.TrialOrder = append(a.TrialOrder, s.ID)
		}
	}
	c.record.Assignment = a
	c.stim = stim

	cfg := applyTiming(trial.KeyConfig(a.KeyMapping), opts.Timing)
	c.seq, err = trial.New(cfg, stim, c.gate)
	return err
}

func (c *Context) setupReturn(opts Options) error {
	stim := c.doc.LayoutOrder()
	randassign.Shuffle(opts.Source, stim)
	for _, s := range stim {
		c.record.TrialOrder = append(c.record.TrialOrder, s.ID)
	}

	c.stim = stim

	var err error
	c.seq, err = trial.New(applyTiming(trial.ClickConfig(), opts.Timing), stim, nil)
	return err
}

func applyTiming(cfg trial.Config, t Timing) trial.Config {
	if t.LeadIn != nil && cfg.Input == trial.InputKey {
		cfg.LeadIn = slices.Clone(t.LeadIn)
	}
	if cfg.Input == trial.InputKey {
		if t.StimulusVisible > 0 {
			cfg.StimulusVisible = t.StimulusVisible
		}
		if t.AdvanceAfter > 0 {
			cfg.AdvanceAfter = t.AdvanceAfter
		}
	}
	if cfg.Input == trial.InputClick && t.ClickISI > 0 {
		cfg.ISI = t.ClickISI
	}
	return cfg
}

// Phase returns the session phase.
func (c *Context) Phase() Phase { return c.phase }

// ID returns the session identifier.
func (c *Context) ID() string { return c.record.ID }

// Assignment returns the drawn session parameters.
func (c *Context) Assignment() randassign.Assignment { return c.record.Assignment }

// Sequencer exposes the trial sequencer for read access.
func (c *Context) Sequencer() *trial.Sequencer { return c.seq }

// Gate returns the accuracy gate.
func (c *Context) Gate() *gate.Gate { return c.gate }

// Document returns the stimulus document the session was built from.
func (c *Context) Document() *stimuli.Document { return c.doc }

// Assets lists the images the session's trials can show, for preloading.
func (c *Context) Assets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, st := range c.stim {
		for _, a := range st.Assets {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// NeedsEntry reports whether an access code must be accepted before Start.
func (c *Context) NeedsEntry() bool {
	return c.entry != nil && !c.entered
}

// CheckEntry classifies an entry code at time now without accepting it.
func (c *Context) CheckEntry(code string, now time.Time) (accesscode.Result, error) {
	if c.entry == nil {
		return accesscode.Result{}, fmt.Errorf("%w: %s sessions take no entry code", trial.ErrIllegalState, c.phase)
	}
	res := c.entry.Decode(code, now)
	c.log.Info("entry code checked",
		zap.String("session_id", c.record.ID),
		zap.Stringer("status", res.Status),
	)
	return res, nil
}

// ValidateEntry checks an entered access code at time now. A valid code is
// recorded; for return sessions its tag sets the delay group.
func (c *Context) ValidateEntry(code string, now time.Time) (accesscode.Result, error) {
	if c.entry == nil {
		return accesscode.Result{}, fmt.Errorf("%w: %s sessions take no entry code", trial.ErrIllegalState, c.phase)
	}
	if c.entered {
		return accesscode.Result{}, fmt.Errorf("%w: entry code already accepted", trial.ErrIllegalState)
	}

	res, err := c.CheckEntry(code, now)
	if err != nil || !res.Valid() {
		return res, err
	}

	if c.phase == PhaseReturn {
		group, ok := gate.GroupFor(res.Tag)
		if !ok {
			return res, fmt.Errorf("return code tag %q has no delay group", res.Tag)
		}
		c.record.DelayGroup = group
	}
	c.record.EntryCode = code
	c.entered = true
	return res, nil
}

// Start begins the trial sequence.
func (c *Context) Start(now time.Time) ([]trial.Effect, error) {
	if c.NeedsEntry() {
		return nil, fmt.Errorf("%w: entry code required before start", trial.ErrIllegalState)
	}
	effects, err := c.seq.Start(now)
	if err != nil {
		return nil, err
	}
	return effects, c.observe(effects, now)
}

// Handle forwards an event to the sequencer. The gate decides as soon as
// the sequence finishes, at the time of the finishing event.
func (c *Context) Handle(ev trial.Event) ([]trial.Effect, error) {
	effects, err := c.seq.Handle(ev)
	if err != nil {
		return nil, err
	}
	return effects, c.observe(effects, trial.EventTime(ev))
}

func (c *Context) observe(effects []trial.Effect, now time.Time) error {
	for _, e := range effects {
		switch e := e.(type) {
		case trial.Committed:
			c.log.Debug("trial committed",
				zap.String("session_id", c.record.ID),
				zap.Int("index", e.Trial.Index),
				zap.String("stimulus", e.Trial.Stimulus.ID),
				zap.String("resp", e.Trial.Response),
				zap.Int64("rt", e.Trial.ReactionTimeMs),
			)
		case trial.Finished:
			if err := c.finish(e.Trials, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) finish(trials []trial.Trial, now time.Time) error {
	c.record.Trials = trials
	if c.phase != PhaseEncode {
		return nil
	}

	c.record.Accuracy = c.gate.Tallies()
	out, err := c.gate.Decide(c.policy, c.record.DelayGroup, c.returns, now)
	if err != nil && !errors.Is(err, gate.ErrMint) {
		return fmt.Errorf("gate decision: %w", err)
	}
	c.record.Outcome = &out
	c.exit = gate.Exit{Code: gate.NoExitCode}
	if out.Kind.Passed() && out.Code != "" {
		c.exit = gate.Exit{Code: out.Code, Start: out.Start, End: out.End}
	}
	c.record.ExitCode = c.exit.Code
	if err != nil {
		c.mintFailed(err)
	}
	c.log.Info("gate decided",
		zap.String("session_id", c.record.ID),
		zap.String("kind", string(out.Kind)),
		zap.Any("accuracy", out.Accuracy),
	)
	return nil
}

// mintFailed keeps the session going without an exit code. The error is
// stored on the record so the experimenter can issue a code by hand.
func (c *Context) mintFailed(err error) {
	c.record.MintError = err.Error()
	c.log.Error("exit code not minted",
		zap.String("session_id", c.record.ID),
		zap.String("delay_group", string(c.record.DelayGroup)),
		zap.Error(err),
	)
}

// Done reports whether the trial sequence has finished.
func (c *Context) Done() bool { return c.seq.State() == trial.StateDone }

// Outcome returns the gate outcome of a finished encode session.
func (c *Context) Outcome() (gate.Outcome, bool) {
	if c.record.Outcome == nil {
		return gate.Outcome{}, false
	}
	return *c.record.Outcome, true
}

// Exit returns the code handed to the subject at the end of the visit:
// the return code of a passed encode session or the check-in code of a
// wrapped-up return session. Check-in sessions issue nothing.
func (c *Context) Exit() gate.Exit { return c.exit }

// WrapUp finalizes the record after the sequence is done: it stores the
// subject's comments, mints the check-in code of a return session and
// stamps the submit time.
func (c *Context) WrapUp(comments string, now time.Time) (Record, error) {
	if !c.Done() {
		return Record{}, fmt.Errorf("%w: wrap-up before the sequence is done", trial.ErrIllegalState)
	}
	if c.record.Submitted() {
		return Record{}, fmt.Errorf("%w: session already wrapped up", trial.ErrIllegalState)
	}

	if c.phase == PhaseReturn {
		exit, err := c.checkIn.ExitCode(c.record.DelayGroup, c.checkin, now)
		if err != nil {
			if !errors.Is(err, gate.ErrMint) {
				return Record{}, err
			}
			c.mintFailed(err)
		}
		c.exit = exit
		c.record.ExitCode = exit.Code
	}
	c.record.Comments = comments
	c.record.SubmitTime = now

	c.log.Info("session wrapped up",
		zap.String("session_id", c.record.ID),
		zap.Int("trials", len(c.record.Trials)),
		zap.Bool("exit_code_issued", c.exit.Issued()),
	)
	return c.Snapshot(), nil
}

// Snapshot returns a copy of the record.
func (c *Context) Snapshot() Record {
	r := c.record
	r.KeyMapping = maps.Clone(r.KeyMapping)
	r.TrialOrder = slices.Clone(r.TrialOrder)
	r.Trials = slices.Clone(r.Trials)
	r.Accuracy = maps.Clone(r.Accuracy)
	if r.Outcome != nil {
		o := *r.Outcome
		o.Accuracy = maps.Clone(o.Accuracy)
		r.Outcome = &o
	}
	return r
}
