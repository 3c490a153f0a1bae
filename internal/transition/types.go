package transition

import (
	"context"
	"time"
)

// Level grades skill gaps and milestone priorities.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// InsightType classifies generated insights.
type InsightType string

const (
	InsightObservation InsightType = "observation"
	InsightChallenge   InsightType = "challenge"
	InsightStory       InsightType = "story"
)

// Transition is one career-change analysis request: a current role moving to
// a target role. Created once per request; the orchestrator flips IsComplete
// at the end of a run.
type Transition struct {
	ID          int64     `json:"id"`
	CurrentRole string    `json:"current_role"`
	TargetRole  string    `json:"target_role"`
	IsComplete  bool      `json:"is_complete"`
	CreatedAt   time.Time `json:"created_at"`
}

// Story is a narrative about a comparable transition found during research.
// Immutable once stored; multiple per transition.
type Story struct {
	ID           int64  `json:"id"`
	TransitionID int64  `json:"transition_id"`
	Source       string `json:"source"`
	Content      string `json:"content"`
	URL          string `json:"url,omitempty"`
	Date         string `json:"date,omitempty"`
}

// SkillGap is one skill the user must develop to reach the target role.
type SkillGap struct {
	ID              int64   `json:"id"`
	TransitionID    int64   `json:"transition_id"`
	SkillName       string  `json:"skill_name"`
	GapLevel        Level   `json:"gap_level"`
	ConfidenceScore float64 `json:"confidence_score"`
	MentionCount    int     `json:"mention_count"`
}

// Insight is a single observation or challenge derived from the research.
type Insight struct {
	ID           int64       `json:"id"`
	TransitionID int64       `json:"transition_id"`
	Type         InsightType `json:"type"`
	Content      string      `json:"content"`
	Source       string      `json:"source,omitempty"`
	Date         string      `json:"date,omitempty"`
}

// Plan is the generated development plan: an ordered sequence of milestones.
type Plan struct {
	ID           int64       `json:"id"`
	TransitionID int64       `json:"transition_id"`
	Milestones   []Milestone `json:"milestones"`
}

// Milestone is one step of a plan. Order is contiguous starting at 1.
type Milestone struct {
	ID            int64      `json:"id"`
	PlanID        int64      `json:"plan_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Priority      Level      `json:"priority"`
	DurationWeeks int        `json:"duration_weeks"`
	Order         int        `json:"order"`
	Progress      int        `json:"progress"`
	Resources     []Resource `json:"resources,omitempty"`
}

// Resource is a learning resource attached to a milestone.
type Resource struct {
	ID          int64  `json:"id"`
	MilestoneID int64  `json:"milestone_id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Type        string `json:"type"`
}

// InsightSummary aggregates the insight and plan stages for the caller.
type InsightSummary struct {
	KeyObservations  []string `json:"key_observations"`
	CommonChallenges []string `json:"common_challenges"`
	SuccessRate      int      `json:"success_rate,omitempty"`
	Timeframe        string   `json:"timeframe,omitempty"`
	SuccessFactors   []string `json:"success_factors,omitempty"`
	Plan             *Plan    `json:"plan,omitempty"`
}

// AnalysisRequest carries everything the orchestrator needs to run a
// transition analysis.
type AnalysisRequest struct {
	TransitionID   int64
	CurrentRole    string
	TargetRole     string
	ExistingSkills []string
	ForceRefresh   bool
}

// AnalysisResult is the complete, well-typed outcome of a run. Content may
// degrade to generic fallback text, but the shape is always intact. InFlight
// is set when another run already held the transition and this call returned
// the latest snapshot instead of executing the pipeline.
type AnalysisResult struct {
	TransitionID int64          `json:"transition_id"`
	SkillGaps    []SkillGap     `json:"skill_gaps"`
	Insights     InsightSummary `json:"insights"`
	ScrapedCount int            `json:"scraped_count"`
	InFlight     bool           `json:"in_flight,omitempty"`
}

// RunStatus is the lifecycle state of an in-memory analysis run.
type RunStatus string

const (
	StatusIdle       RunStatus = "idle"
	StatusInProgress RunStatus = "in_progress"
	StatusComplete   RunStatus = "complete"
	StatusFailed     RunStatus = "failed"
)

// RunState is the tracker's per-transition bookkeeping entry. It accumulates
// partial data at each stage boundary so concurrent duplicate requests can be
// answered with the best available snapshot. Process-scoped; not persisted.
type RunState struct {
	TransitionID int64           `json:"transition_id"`
	Status       RunStatus       `json:"status"`
	Stage        string          `json:"stage,omitempty"`
	Stories      []Story         `json:"stories,omitempty"`
	SkillGaps    []SkillGap      `json:"skill_gaps,omitempty"`
	Insights     *InsightSummary `json:"insights,omitempty"`
	Plan         *Plan           `json:"plan,omitempty"`
	Error        string          `json:"error,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RunPatch is a shallow merge applied to a RunState: each non-nil field
// replaces the previous value wholesale.
type RunPatch struct {
	Status    RunStatus
	Stage     string
	Stories   []Story
	SkillGaps []SkillGap
	Insights  *InsightSummary
	Plan      *Plan
	Error     string
}

// Repository is the persistence boundary consumed by the pipeline. Each
// stage's writes are independently committed; no cross-stage transactions.
type Repository interface {
	CreateTransition(ctx context.Context, t *Transition) error
	GetTransition(ctx context.Context, id int64) (Transition, error)
	UpdateTransitionStatus(ctx context.Context, id int64, complete bool) error
	ClearTransitionData(ctx context.Context, id int64) error

	CreateStory(ctx context.Context, s *Story) error
	StoriesByTransition(ctx context.Context, id int64) ([]Story, error)

	CreateSkillGap(ctx context.Context, g *SkillGap) error
	SkillGapsByTransition(ctx context.Context, id int64) ([]SkillGap, error)

	CreateInsight(ctx context.Context, ins *Insight) error
	InsightsByTransition(ctx context.Context, id int64) ([]Insight, error)

	CreatePlan(ctx context.Context, p *Plan) error
	CreateMilestone(ctx context.Context, m *Milestone) error
	CreateResource(ctx context.Context, r *Resource) error

	// RoleSkills returns the known skill list for a role, if any.
	RoleSkills(ctx context.Context, role string) ([]string, error)
}
