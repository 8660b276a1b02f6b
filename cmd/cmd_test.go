package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/store"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestPickTag(t *testing.T) {
	tag, err := pickTag(accesscode.CheckIn, "")
	require.NoError(t, err)
	assert.Equal(t, accesscode.TagCheckIn, tag)

	_, err = pickTag(accesscode.ReturnSession, "")
	assert.Error(t, err, "return codes need a tag")

	tag, err = pickTag(accesscode.ReturnSession, "long")
	require.NoError(t, err)
	assert.Equal(t, accesscode.TagLong, tag)

	_, err = pickTag(accesscode.ReturnSession, "checkin")
	assert.Error(t, err)
}

func TestSubjectSeed(t *testing.T) {
	assert.Equal(t, uint64(0), subjectSeed(0), "random assignment keeps a random subject")
	assert.Equal(t, uint64(8), subjectSeed(7))
}

func TestSimulateSubmits(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sim.db")
	require.NoError(t, execute(t, "simulate", "--db", db, "--phase", "encode", "--seed", "11", "--accuracy", "1", "--submit"))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	rows, err := st.Sessions().List(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, session.PhaseEncode, rows[0].Phase)
	assert.Equal(t, 4, rows[0].Trials)

	rec, err := st.Sessions().Get(context.Background(), rows[0].ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Outcome)
	assert.True(t, rec.Outcome.Kind.Passed())
	assert.NotEqual(t, "none", rec.ExitCode)
}

func TestSimulateRejectsBadAccuracy(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sim.db")
	assert.Error(t, execute(t, "simulate", "--db", db, "--phase", "encode", "--accuracy", "1.5", "--submit=false"))
}

func TestCodeCommands(t *testing.T) {
	require.NoError(t, execute(t, "code", "encode", "--family", "check-in", "--window", "2h"))
	assert.Error(t, execute(t, "code", "encode", "--family", "nope"))
	require.NoError(t, execute(t, "code", "check", "8302garbage"))
}

func TestResetNeedsConfirmation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reset.db")
	assert.Error(t, execute(t, "reset", "--db", db, "--yes=false"))
	require.NoError(t, execute(t, "reset", "--db", db, "--yes"))
}
