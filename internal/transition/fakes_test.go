package transition

import (
	"context"
	"fmt"
	"sync"

	"github.com/careershift/careershift/tools/web_search/models"
)

// fakeRepo is an in-memory Repository with optional failure injection.
type fakeRepo struct {
	mu          sync.Mutex
	transitions map[int64]Transition
	stories     []Story
	gaps        []SkillGap
	insights    []Insight
	plans       []Plan
	milestones  []Milestone
	resources   []Resource
	roleSkills  map[string][]string
	nextID      int64

	failSkillGapOnce bool
	statusUpdates    []bool
}

func newFakeRepo(ids ...int64) *fakeRepo {
	r := &fakeRepo{
		transitions: make(map[int64]Transition),
		roleSkills:  make(map[string][]string),
	}
	for _, id := range ids {
		r.transitions[id] = Transition{ID: id, CurrentRole: "teacher", TargetRole: "data analyst"}
	}
	return r
}

func (r *fakeRepo) id() int64 { r.nextID++; return r.nextID }

func (r *fakeRepo) CreateTransition(ctx context.Context, t *Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.id()
	r.transitions[t.ID] = *t
	return nil
}

func (r *fakeRepo) GetTransition(ctx context.Context, id int64) (Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transitions[id]
	if !ok {
		return Transition{}, fmt.Errorf("transition %d not found", id)
	}
	return t, nil
}

func (r *fakeRepo) UpdateTransitionStatus(ctx context.Context, id int64, complete bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusUpdates = append(r.statusUpdates, complete)
	t, ok := r.transitions[id]
	if !ok {
		return fmt.Errorf("transition %d not found", id)
	}
	t.IsComplete = complete
	r.transitions[id] = t
	return nil
}

func (r *fakeRepo) ClearTransitionData(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stories = nil
	r.gaps = nil
	r.insights = nil
	r.plans = nil
	r.milestones = nil
	r.resources = nil
	return nil
}

func (r *fakeRepo) CreateStory(ctx context.Context, s *Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	r.stories = append(r.stories, *s)
	return nil
}

func (r *fakeRepo) StoriesByTransition(ctx context.Context, id int64) ([]Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Story
	for _, s := range r.stories {
		if s.TransitionID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateSkillGap(ctx context.Context, g *SkillGap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSkillGapOnce {
		r.failSkillGapOnce = false
		return fmt.Errorf("simulated write failure")
	}
	g.ID = r.id()
	r.gaps = append(r.gaps, *g)
	return nil
}

func (r *fakeRepo) SkillGapsByTransition(ctx context.Context, id int64) ([]SkillGap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SkillGap
	for _, g := range r.gaps {
		if g.TransitionID == id {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateInsight(ctx context.Context, ins *Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ins.ID = r.id()
	r.insights = append(r.insights, *ins)
	return nil
}

func (r *fakeRepo) InsightsByTransition(ctx context.Context, id int64) ([]Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Insight
	for _, ins := range r.insights {
		if ins.TransitionID == id {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreatePlan(ctx context.Context, p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.plans = append(r.plans, *p)
	return nil
}

func (r *fakeRepo) CreateMilestone(ctx context.Context, m *Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.id()
	r.milestones = append(r.milestones, *m)
	return nil
}

func (r *fakeRepo) CreateResource(ctx context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.ID = r.id()
	r.resources = append(r.resources, *res)
	return nil
}

func (r *fakeRepo) RoleSkills(ctx context.Context, role string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roleSkills[role], nil
}

// fakeLLM answers completions via fn and counts calls.
type fakeLLM struct {
	mu    sync.Mutex
	calls int
	fn    func(system, user string) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(system, user)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stageLLM routes each stage's completion by its system prompt.
func stageLLM(gaps, insights, plan string) *fakeLLM {
	return &fakeLLM{fn: func(system, user string) (string, error) {
		switch system {
		case skillGapSystemPrompt:
			return gaps, nil
		case insightSystemPrompt:
			return insights, nil
		case planSystemPrompt:
			return plan, nil
		default:
			return "", fmt.Errorf("unexpected system prompt")
		}
	}}
}

// fakeSearcher returns a fixed result set and counts calls.
type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results []models.Result
	err     error

	started chan struct{}
	release chan struct{}
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const (
	validGapsJSON = `[{"skillName":"SQL","gapLevel":"high","confidence":85,"mentions":3},` +
		`{"skillName":"Statistics","gapLevel":"medium","confidence":60,"mentions":2}]`
	validInsightsJSON = `{"keyObservations":["obs one","obs two"],"commonChallenges":["ch one"],"successRate":72,"timeframe":"12 months"}`
	validPlanJSON     = `{"milestones":[{"title":"Learn SQL","description":"d","priority":"high","durationWeeks":6,` +
		`"resources":[{"title":"SQL course","url":"https://example.com","type":"course"}]},` +
		`{"title":"Statistics basics","priority":"medium"}]}`
)

func searchHits() []models.Result {
	return []models.Result{
		{Title: "From teaching to data", URL: "https://example.com/a", Snippet: "I left teaching and became a data analyst."},
		{Title: "Career change story", URL: "https://example.com/b", Snippet: "My move into analytics took a year."},
	}
}
