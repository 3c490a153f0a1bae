package transition

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/careershift/careershift/provider"
	"github.com/careershift/careershift/tools/web_fetch"
	"github.com/careershift/careershift/tools/web_search"
)

var runTracer trace.Tracer = otel.Tracer("careershift/internal/transition")

// Orchestrator sequences the four analysis stages for a transition: research,
// skill-gap analysis, insight generation and plan generation. Each stage runs
// behind the tracker's admission gate and is individually failure-isolated: a
// failing stage is replaced by its deterministic fallback and the run
// continues, so callers always receive a complete result. Only repository
// unavailability or a missing transition aborts a run.
type Orchestrator struct {
	repo     Repository
	llm      provider.Provider
	searcher web_search.WebSearcher
	fetcher  web_fetch.WebFetcher
	tracker  *Tracker
	logger   *log.Logger
}

// NewOrchestrator creates an orchestrator over the given collaborators. The
// tracker instance scopes the in-flight deduplication; callers that share a
// tracker share that guarantee.
func NewOrchestrator(repo Repository, llm provider.Provider, searcher web_search.WebSearcher, tracker *Tracker, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		llm:      llm,
		searcher: searcher,
		tracker:  tracker,
		logger:   logger,
	}
}

// SetFetcher enables full-page retrieval during research. Without it the
// research stage keeps search snippets.
func (o *Orchestrator) SetFetcher(f web_fetch.WebFetcher) { o.fetcher = f }

// Status returns the tracker snapshot for a transition.
func (o *Orchestrator) Status(id int64) (RunState, bool) { return o.tracker.Snapshot(id) }

// Run executes the full analysis pipeline for one transition. A concurrent
// duplicate request for the same id does not start a second pipeline; it
// returns the latest snapshot with InFlight set. ForceRefresh clears the
// transition's persisted data first and re-admits even an in-progress entry.
func (o *Orchestrator) Run(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx, span := runTracer.Start(ctx, "transition.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int64("transition.id", req.TransitionID),
			attribute.Bool("transition.force_refresh", req.ForceRefresh),
		))
	defer span.End()

	if req.ForceRefresh {
		if err := o.repo.ClearTransitionData(ctx, req.TransitionID); err != nil {
			o.logger.Printf("[ORCH] warn: clearing data for transition %d failed: %v", req.TransitionID, err)
		}
	}

	if !o.tracker.TryAcquire(req.TransitionID, req.ForceRefresh) {
		dedupedRuns.Inc()
		span.AddEvent("run.deduplicated")
		st, _ := o.tracker.Snapshot(req.TransitionID)
		o.logger.Printf("[ORCH] transition %d already in flight, returning snapshot", req.TransitionID)
		return snapshotResult(req.TransitionID, st), nil
	}
	defer o.tracker.Release(req.TransitionID)

	if _, err := o.repo.GetTransition(ctx, req.TransitionID); err != nil {
		o.tracker.Update(req.TransitionID, RunPatch{Status: StatusFailed, Error: err.Error()})
		// Best effort: downstream consumers must not poll forever.
		if uerr := o.repo.UpdateTransitionStatus(ctx, req.TransitionID, true); uerr != nil {
			o.logger.Printf("[ORCH] warn: marking transition %d complete after failure also failed: %v", req.TransitionID, uerr)
		}
		runsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AnalysisResult{}, fmt.Errorf("loading transition %d: %w", req.TransitionID, err)
	}

	o.logger.Printf("[ORCH] run %s: starting analysis for transition %d (%s -> %s)", runID, req.TransitionID, req.CurrentRole, req.TargetRole)

	o.tracker.Update(req.TransitionID, RunPatch{Stage: "researching"})
	stories := runStage(ctx, o, req.TransitionID, "research",
		func(ctx context.Context) ([]Story, error) { return o.researchStage(ctx, req) },
		func() []Story { return fallbackStories(req.CurrentRole, req.TargetRole) })
	o.tracker.Update(req.TransitionID, RunPatch{Stage: "analyzing_gaps", Stories: stories})

	gaps := runStage(ctx, o, req.TransitionID, "skill_gaps",
		func(ctx context.Context) ([]SkillGap, error) { return o.skillGapStage(ctx, req, stories) },
		func() []SkillGap { return fallbackSkillGaps(req.TargetRole) })
	o.tracker.Update(req.TransitionID, RunPatch{Stage: "generating_insights", SkillGaps: gaps})

	insights := runStage(ctx, o, req.TransitionID, "insights",
		func(ctx context.Context) (InsightSummary, error) { return o.insightStage(ctx, req, stories, gaps) },
		func() InsightSummary { return fallbackInsights(req.CurrentRole, req.TargetRole) })
	o.tracker.Update(req.TransitionID, RunPatch{Stage: "planning", Insights: &insights})

	plan := runStage(ctx, o, req.TransitionID, "plan",
		func(ctx context.Context) (*Plan, error) { return o.planStage(ctx, req, gaps, insights) },
		func() *Plan { return synthesizePlan(req.TransitionID, req.TargetRole, gaps) })
	insights.Plan = plan
	o.tracker.Update(req.TransitionID, RunPatch{Stage: "finalizing", Insights: &insights, Plan: plan})

	if err := o.repo.UpdateTransitionStatus(ctx, req.TransitionID, true); err != nil {
		o.logger.Printf("[ORCH] warn: marking transition %d complete failed: %v", req.TransitionID, err)
	}
	o.tracker.Update(req.TransitionID, RunPatch{Status: StatusComplete, Stage: "complete"})

	runsTotal.WithLabelValues("complete").Inc()
	runDuration.Observe(time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "completed")
	o.logger.Printf("[ORCH] finished analysis for transition %d in %s (%d stories, %d gaps, %d milestones)",
		req.TransitionID, time.Since(start).Round(time.Millisecond), len(stories), len(gaps), len(plan.Milestones))

	return AnalysisResult{
		TransitionID: req.TransitionID,
		SkillGaps:    gaps,
		Insights:     insights,
		ScrapedCount: len(stories),
	}, nil
}

// runStage wraps one stage call in a span and the failure-isolation policy:
// on error the stage's fallback is substituted and the pipeline continues.
func runStage[T any](ctx context.Context, o *Orchestrator, id int64, name string, stage func(context.Context) (T, error), fallback func() T) T {
	ctx, span := runTracer.Start(ctx, "transition.stage."+name)
	defer span.End()

	out, err := stage(ctx)
	if err != nil {
		o.logger.Printf("[ORCH] stage %s failed for transition %d, using fallback: %v", name, id, err)
		stageFallbacks.WithLabelValues(name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fallback()
	}
	span.SetStatus(codes.Ok, "completed")
	return out
}

// snapshotResult assembles the best available result from a tracker entry
// for a rejected duplicate request.
func snapshotResult(id int64, st RunState) AnalysisResult {
	out := AnalysisResult{
		TransitionID: id,
		SkillGaps:    []SkillGap{},
		InFlight:     true,
		ScrapedCount: len(st.Stories),
	}
	if st.SkillGaps != nil {
		out.SkillGaps = st.SkillGaps
	}
	if st.Insights != nil {
		out.Insights = *st.Insights
	}
	if st.Plan != nil {
		out.Insights.Plan = st.Plan
	}
	return out
}
