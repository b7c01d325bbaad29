package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/memory"
)

func TestSweep(t *testing.T) {
	store := newStore(t, 100)
	aged := store.AddEntry(memory.TypeObservation, "stale", "b")
	aged.Timestamp = time.Now().Add(-100 * time.Hour)
	store.AddEntry(memory.TypeObservation, "fresh", "b")

	sweeper := memory.NewSweeper(store, &memory.SweeperConfig{MaxAge: 72 * time.Hour})
	sweeper.Sweep()

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "fresh", store.QueryEntries()[0].Title)
}

func TestSweeperStartStop(t *testing.T) {
	store := newStore(t, 100)
	sweeper := memory.NewSweeper(store, &memory.SweeperConfig{
		Schedule: "* * * * *",
		MaxAge:   time.Hour,
	})
	assert.NoError(t, sweeper.Start())
	sweeper.Stop()
}

func TestSweeperStartTwice(t *testing.T) {
	store := newStore(t, 100)
	sweeper := memory.NewSweeper(store, &memory.SweeperConfig{
		Schedule: "* * * * *",
		MaxAge:   time.Hour,
	})
	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	// A running sweeper refuses a second Start instead of double-scheduling.
	assert.Error(t, sweeper.Start())

	// After Stop it can be started again.
	sweeper.Stop()
	assert.NoError(t, sweeper.Start())
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	store := newStore(t, 100)
	sweeper := memory.NewSweeper(store, &memory.SweeperConfig{
		Schedule: "not a cron expression",
		MaxAge:   time.Hour,
	})
	assert.Error(t, sweeper.Start())
}
