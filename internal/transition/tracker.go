package transition

import (
	"sync"
	"time"
)

// Tracker is the in-memory registry of analysis runs, keyed by transition
// id. It is the only concurrently mutated shared structure in the pipeline:
// TryAcquire is the sole admission gate, so at most one run holds a
// transition in_progress at a time. Entries live for the process lifetime;
// they are small and the tracker is not a substitute for the repository's
// durable completion flag.
type Tracker struct {
	mu   sync.RWMutex
	runs map[int64]*RunState
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[int64]*RunState)}
}

// TryAcquire admits a run for id. It returns false when an entry is already
// in_progress and force is unset; the caller must then serve the latest
// snapshot instead of starting a second pipeline. Otherwise the entry is
// created or reset to in_progress and true is returned.
func (t *Tracker) TryAcquire(id int64, force bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.runs[id]
	if ok && st.Status == StatusInProgress && !force {
		return false
	}
	t.runs[id] = &RunState{
		TransitionID: id,
		Status:       StatusInProgress,
		UpdatedAt:    time.Now(),
	}
	return true
}

// Update merges patch into the entry for id. Merging is shallow: each
// populated patch field replaces the stored value wholesale. Missing entries
// are created so a caller cannot lose an update.
func (t *Tracker) Update(id int64, patch RunPatch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.runs[id]
	if !ok {
		st = &RunState{TransitionID: id, Status: StatusIdle}
		t.runs[id] = st
	}
	if patch.Status != "" {
		st.Status = patch.Status
	}
	if patch.Stage != "" {
		st.Stage = patch.Stage
	}
	if patch.Stories != nil {
		st.Stories = patch.Stories
	}
	if patch.SkillGaps != nil {
		st.SkillGaps = patch.SkillGaps
	}
	if patch.Insights != nil {
		st.Insights = patch.Insights
	}
	if patch.Plan != nil {
		st.Plan = patch.Plan
	}
	if patch.Error != "" {
		st.Error = patch.Error
	}
	st.UpdatedAt = time.Now()
}

// Release unconditionally marks the entry as no longer in flight. Runs call
// it in a defer so a panic mid-pipeline cannot wedge the transition forever.
// A terminal status set by Update is preserved; an entry still in_progress is
// demoted to failed.
func (t *Tracker) Release(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.runs[id]
	if !ok {
		return
	}
	if st.Status == StatusInProgress {
		st.Status = StatusFailed
	}
	st.UpdatedAt = time.Now()
}

// Snapshot returns a copy of the entry for id. Slices are copied so callers
// cannot race with an executing run.
func (t *Tracker) Snapshot(id int64) (RunState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.runs[id]
	if !ok {
		return RunState{}, false
	}
	out := *st
	if st.Stories != nil {
		out.Stories = append([]Story(nil), st.Stories...)
	}
	if st.SkillGaps != nil {
		out.SkillGaps = append([]SkillGap(nil), st.SkillGaps...)
	}
	if st.Insights != nil {
		ins := *st.Insights
		out.Insights = &ins
	}
	if st.Plan != nil {
		p := *st.Plan
		p.Milestones = make([]Milestone, len(st.Plan.Milestones))
		for i, m := range st.Plan.Milestones {
			m.Resources = append([]Resource(nil), m.Resources...)
			p.Milestones[i] = m
		}
		out.Plan = &p
	}
	return out, true
}
