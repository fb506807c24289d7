package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReport() (*Report, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New("synchronize", "42")
	r.now = clock.now
	r.started = clock.now()
	return r, clock
}

func TestReport_Phases(t *testing.T) {
	r, clock := newTestReport()

	r.Start("fetch tasks")
	clock.advance(2 * time.Second)
	r.Done("fetch tasks")
	r.Start("upsert")
	clock.advance(time.Second)
	r.Fail("upsert", errors.New("db down"))
	r.Fail("commit", nil)

	phases := r.Phases()
	require.Len(t, phases, 3)
	assert.Equal(t, PhaseDone, phases[0].State)
	assert.Equal(t, 2*time.Second, phases[0].Duration)
	assert.Equal(t, PhaseFailed, phases[1].State)
	assert.Equal(t, "db down", phases[1].Reason)
	assert.Equal(t, "commit", phases[2].Name)
	assert.True(t, r.Failed())

	r.Finish()
	clock.advance(time.Hour)
	assert.Equal(t, 3*time.Second, r.Elapsed())
}

func TestReport_RestartPhase(t *testing.T) {
	r, _ := newTestReport()
	r.Start("upsert")
	r.Fail("upsert", errors.New("x"))
	r.Start("upsert")

	phases := r.Phases()
	require.Len(t, phases, 1)
	assert.Equal(t, PhaseRunning, phases[0].State)
	assert.Empty(t, phases[0].Reason)
	assert.False(t, r.Failed())
}

func TestReport_Render(t *testing.T) {
	r, _ := newTestReport()
	r.Table = "roadmap"
	r.Dry = true
	r.Start("fetch tasks")
	r.Done("fetch tasks")
	r.SetResult(3, 1)
	r.SetCounters(Counters{APIRequests: 4, DBReads: 1, DBWrites: 5, DBExecuted: 1})
	r.Finish()

	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Run "+r.RunID+": synchronize of project 42 (dry run)\n"), out)
	assert.Contains(t, out, "Table: roadmap")
	assert.Contains(t, out, "fetch tasks")
	assert.Contains(t, out, "Rows: upserted = 3, deleted = 1")
	assert.Contains(t, out, "API Requests: 4")
	assert.Contains(t, out, "DB Commands: reads = 1, writes = 5, executed = 1")
}
