package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/careershift/careershift/internal/extract"
)

var errNoInsights = errors.New("no usable insights extracted")

// insightStage asks the completion provider to summarize what the research
// and skill gaps say about this transition, then persists each observation
// and challenge as an individual Insight row. The summary object is also
// returned whole so the caller can embed it in the result.
func (o *Orchestrator) insightStage(ctx context.Context, req AnalysisRequest, stories []Story, gaps []SkillGap) (InsightSummary, error) {
	raw, err := o.llm.Complete(ctx, insightSystemPrompt, buildInsightPrompt(req, stories, gaps))
	if err != nil {
		return InsightSummary{}, fmt.Errorf("insight completion: %w", err)
	}

	obj, ok := extract.Object(raw, map[string]interface{}{
		"keyObservations":  []interface{}{},
		"commonChallenges": []interface{}{},
	})
	if !ok {
		return InsightSummary{}, errNoInsights
	}

	summary := InsightSummary{
		KeyObservations:  stringList(obj, "keyObservations", "key_observations", "observations"),
		CommonChallenges: stringList(obj, "commonChallenges", "common_challenges", "challenges"),
		Timeframe:        stringField(obj, "timeframe", "time_frame"),
		SuccessFactors:   stringList(obj, "successFactors", "success_factors"),
	}
	if rate, ok := numberField(obj, "successRate", "success_rate"); ok {
		summary.SuccessRate = int(clampConfidence(rate, true))
	}
	if len(summary.KeyObservations) == 0 && len(summary.CommonChallenges) == 0 {
		return InsightSummary{}, errNoInsights
	}

	persist := func(typ InsightType, content string) {
		ins := Insight{TransitionID: req.TransitionID, Type: typ, Content: content}
		if err := o.repo.CreateInsight(ctx, &ins); err != nil {
			o.logger.Printf("[ORCH] warn: storing %s insight failed: %v", typ, err)
		}
	}
	for _, obs := range summary.KeyObservations {
		persist(InsightObservation, obs)
	}
	for _, ch := range summary.CommonChallenges {
		persist(InsightChallenge, ch)
	}
	return summary, nil
}

// stringList collects the first present key as a list of non-empty strings.
func stringList(rec map[string]interface{}, keys ...string) []string {
	for _, k := range keys {
		raw, ok := rec[k].([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

const fallbackSuccessRate = 65

// fallbackInsights is the generic summary used when insight extraction
// recovers nothing usable.
func fallbackInsights(currentRole, targetRole string) InsightSummary {
	return InsightSummary{
		KeyObservations: []string{
			fmt.Sprintf("People who moved from %s to %s usually succeeded by transferring existing strengths rather than starting from zero.", currentRole, targetRole),
			"Deliberate, structured upskilling beats ad-hoc learning for career changers.",
			"Visible proof of ability in the new field, such as a portfolio or side projects, shortens the transition considerably.",
		},
		CommonChallenges: []string{
			"Convincing employers to take a chance on a candidate without direct experience in the role.",
			"Sustaining motivation through a transition that typically takes many months.",
			"Identifying which existing skills actually transfer and which gaps matter most.",
		},
		SuccessRate:    fallbackSuccessRate,
		Timeframe:      "6-18 months",
		SuccessFactors: []string{"consistent practice", "mentorship", "networking in the target field"},
	}
}
