// Package report tracks the phases of one CLI run and renders the run summary
// printed by --dump-perf.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

// PhaseState is the status of one phase.
type PhaseState string

const (
	PhaseRunning PhaseState = "running"
	PhaseDone    PhaseState = "done"
	PhaseFailed  PhaseState = "failed"
)

// Phase is one named step of a run, such as "fetch tasks" or "upsert".
type Phase struct {
	Name     string
	State    PhaseState
	Started  time.Time
	Duration time.Duration
	Reason   string
}

// Counters are the request and statement counts of a run.
type Counters struct {
	APIRequests int
	DBReads     int
	DBWrites    int
	DBExecuted  int
}

// Report accumulates what happened during a run. It is safe for concurrent use
// so a spinner goroutine may read it while the command writes.
type Report struct {
	RunID     string
	Command   string
	ProjectID string
	Table     string
	Dry       bool

	mu       sync.Mutex
	now      func() time.Time
	started  time.Time
	finished time.Time
	phases   []*Phase
	upserted int
	deleted  int
	counters Counters
}

// New starts a report for command on project.
func New(command, projectID string) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		Command:   command,
		ProjectID: projectID,
		now:       time.Now,
	}
	r.started = r.now()
	return r
}

// Start marks a phase as running. Starting a known phase restarts it.
func (r *Report) Start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.find(name); p != nil {
		p.State, p.Started, p.Duration, p.Reason = PhaseRunning, r.now(), 0, ""
		return
	}
	r.phases = append(r.phases, &Phase{Name: name, State: PhaseRunning, Started: r.now()})
}

// Done marks a phase as finished.
func (r *Report) Done(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.find(name); p != nil {
		p.State = PhaseDone
		p.Duration = r.now().Sub(p.Started)
	}
}

// Fail marks a phase as failed with err.
func (r *Report) Fail(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.find(name)
	if p == nil {
		p = &Phase{Name: name, Started: r.now()}
		r.phases = append(r.phases, p)
	}
	p.State = PhaseFailed
	p.Duration = r.now().Sub(p.Started)
	if err != nil {
		p.Reason = err.Error()
	}
}

// SetResult records the upserted and deleted row counts.
func (r *Report) SetResult(upserted, deleted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted, r.deleted = upserted, deleted
}

// SetCounters records request and statement counts.
func (r *Report) SetCounters(c Counters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = c
}

// Finish stops the run clock.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = r.now()
}

// Phases returns a copy of the phases in start order.
func (r *Report) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.phases))
	for i, p := range r.phases {
		out[i] = *p
	}
	return out
}

// Failed reports whether any phase failed.
func (r *Report) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.phases {
		if p.State == PhaseFailed {
			return true
		}
	}
	return false
}

// Elapsed returns the run duration so far, or the total once finished.
func (r *Report) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished.IsZero() {
		return r.finished.Sub(r.started)
	}
	return r.now().Sub(r.started)
}

func (r *Report) find(name string) *Phase {
	for _, p := range r.phases {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PerfLines returns the performance summary lines.
func (r *Report) PerfLines() []string {
	r.mu.Lock()
	c := r.counters
	r.mu.Unlock()
	return []string{
		fmt.Sprintf("API Requests: %d", c.APIRequests),
		fmt.Sprintf("DB Commands: reads = %d, writes = %d, executed = %d", c.DBReads, c.DBWrites, c.DBExecuted),
	}
}

// Render writes the phase table and the performance summary to w.
func (r *Report) Render(w io.Writer) error {
	data := pterm.TableData{{"Phase", "State", "Duration", "Details"}}
	for _, p := range r.Phases() {
		data = append(data, []string{p.Name, string(p.State), p.Duration.Round(time.Millisecond).String(), p.Reason})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	r.mu.Lock()
	upserted, deleted := r.upserted, r.deleted
	r.mu.Unlock()

	mode := ""
	if r.Dry {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s: %s of project %s%s\n", r.RunID, r.Command, r.ProjectID, mode)
	if r.Table != "" {
		fmt.Fprintf(w, "Table: %s\n", r.Table)
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "Rows: upserted = %d, deleted = %d\n", upserted, deleted)
	for _, line := range r.PerfLines() {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", r.Elapsed().Round(time.Millisecond))
	return nil
}
