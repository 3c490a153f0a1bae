package transition

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/careershift/careershift/internal/extract"
)

const (
	defaultMilestoneWeeks = 4
	maxSynthesizedGaps    = 5
)

// planStage asks the completion provider for a development plan, extracts
// its milestones and persists the plan tree in order. When extraction yields
// zero milestones the plan is synthesized from the top skill gaps instead,
// so a stored plan is never empty. Only a completion failure is reported as
// an error; the orchestrator's fallback then runs the same synthesis without
// persistence.
func (o *Orchestrator) planStage(ctx context.Context, req AnalysisRequest, gaps []SkillGap, insights InsightSummary) (*Plan, error) {
	raw, err := o.llm.Complete(ctx, planSystemPrompt, buildPlanPrompt(req, gaps, insights))
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}

	obj, _ := extract.Object(raw, map[string]interface{}{"milestones": []interface{}{}})
	milestones := normalizeMilestones(obj)
	if len(milestones) == 0 {
		o.logger.Printf("[ORCH] plan extraction yielded no milestones for transition %d, synthesizing from skill gaps", req.TransitionID)
		milestones = synthesizeMilestones(req.TargetRole, gaps)
	}

	plan := &Plan{TransitionID: req.TransitionID}
	if err := o.repo.CreatePlan(ctx, plan); err != nil {
		o.logger.Printf("[ORCH] warn: storing plan for transition %d failed: %v", req.TransitionID, err)
	}
	for i := range milestones {
		m := &milestones[i]
		m.PlanID = plan.ID
		m.Order = i + 1
		if err := o.repo.CreateMilestone(ctx, m); err != nil {
			o.logger.Printf("[ORCH] warn: storing milestone %q failed: %v", m.Title, err)
		}
		for j := range m.Resources {
			r := &m.Resources[j]
			r.MilestoneID = m.ID
			if err := o.repo.CreateResource(ctx, r); err != nil {
				o.logger.Printf("[ORCH] warn: storing resource %q failed: %v", r.Title, err)
			}
		}
	}
	plan.Milestones = milestones
	return plan, nil
}

// normalizeMilestones maps the extracted plan object onto typed milestones,
// tolerating field-name variants. Entries without a title are dropped.
func normalizeMilestones(obj map[string]interface{}) []Milestone {
	raw, ok := obj["milestones"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Milestone, 0, len(raw))
	for _, item := range raw {
		rec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		title := stringField(rec, "title", "name")
		if title == "" {
			continue
		}
		m := Milestone{
			Title:         title,
			Description:   stringField(rec, "description", "details"),
			Priority:      parseLevel(stringField(rec, "priority", "level")),
			DurationWeeks: defaultMilestoneWeeks,
		}
		if weeks, ok := numberField(rec, "durationWeeks", "duration_weeks", "weeks", "duration"); ok && weeks >= 1 {
			m.DurationWeeks = int(weeks)
		}
		if resources, ok := rec["resources"].([]interface{}); ok {
			for _, rv := range resources {
				rrec, ok := rv.(map[string]interface{})
				if !ok {
					continue
				}
				rtitle := stringField(rrec, "title", "name")
				if rtitle == "" {
					continue
				}
				m.Resources = append(m.Resources, Resource{
					Title: rtitle,
					URL:   stringField(rrec, "url", "link"),
					Type:  stringField(rrec, "type", "kind"),
				})
			}
		}
		out = append(out, m)
	}
	return out
}

// synthesizeMilestones builds a plan directly from the top skill gaps: one
// milestone per gap, highest gaps first, capped at five, each with a default
// duration and a single generic resource. With no gaps at all it falls back
// to the generic gap list so the result is never empty.
func synthesizeMilestones(targetRole string, gaps []SkillGap) []Milestone {
	if len(gaps) == 0 {
		gaps = fallbackSkillGaps(targetRole)
	}
	ranked := append([]SkillGap(nil), gaps...)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := levelWeight(ranked[i].GapLevel), levelWeight(ranked[j].GapLevel)
		if wi != wj {
			return wi > wj
		}
		return ranked[i].ConfidenceScore > ranked[j].ConfidenceScore
	})
	if len(ranked) > maxSynthesizedGaps {
		ranked = ranked[:maxSynthesizedGaps]
	}

	out := make([]Milestone, 0, len(ranked))
	for _, g := range ranked {
		out = append(out, Milestone{
			Title:         fmt.Sprintf("Develop %s", g.SkillName),
			Description:   fmt.Sprintf("Close the %s-priority gap in %s through structured study and hands-on practice.", g.GapLevel, g.SkillName),
			Priority:      g.GapLevel,
			DurationWeeks: defaultMilestoneWeeks,
			Resources: []Resource{{
				Title: fmt.Sprintf("Courses and practice material for %s", g.SkillName),
				URL:   "https://www.coursera.org/search?query=" + url.QueryEscape(g.SkillName),
				Type:  "course",
			}},
		})
	}
	return out
}

func levelWeight(l Level) int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	default:
		return 1
	}
}

// synthesizePlan is the pure plan fallback: the same synthesis used for a
// zero-milestone extraction, assembled in memory without repository writes.
func synthesizePlan(transitionID int64, targetRole string, gaps []SkillGap) *Plan {
	milestones := synthesizeMilestones(targetRole, gaps)
	for i := range milestones {
		milestones[i].Order = i + 1
	}
	return &Plan{TransitionID: transitionID, Milestones: milestones}
}
