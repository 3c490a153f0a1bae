package transition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/careershift/careershift/internal/extract"
)

var errNoSkillGaps = errors.New("no usable skill gaps extracted")

// skillGapStage asks the completion provider for the skills the user still
// needs, extracts the gap records from the free-form answer and persists
// them. Records without a skill name are discarded before persistence. An
// empty extraction is an error so the orchestrator can substitute the
// fallback gaps.
func (o *Orchestrator) skillGapStage(ctx context.Context, req AnalysisRequest, stories []Story) ([]SkillGap, error) {
	roleSkills, err := o.repo.RoleSkills(ctx, req.TargetRole)
	if err != nil {
		o.logger.Printf("[ORCH] warn: loading role skills for %q failed: %v", req.TargetRole, err)
		roleSkills = nil
	}

	raw, err := o.llm.Complete(ctx, skillGapSystemPrompt, buildSkillGapPrompt(req, stories, roleSkills))
	if err != nil {
		return nil, fmt.Errorf("skill gap completion: %w", err)
	}

	records, ok := extract.Array(raw)
	if !ok {
		return nil, errNoSkillGaps
	}

	gaps := make([]SkillGap, 0, len(records))
	for _, rec := range records {
		gap, ok := normalizeSkillGap(rec)
		if !ok {
			continue
		}
		gap.TransitionID = req.TransitionID
		if err := o.repo.CreateSkillGap(ctx, &gap); err != nil {
			o.logger.Printf("[ORCH] warn: storing skill gap %q failed: %v", gap.SkillName, err)
		}
		gaps = append(gaps, gap)
	}
	if len(gaps) == 0 {
		return nil, errNoSkillGaps
	}
	return gaps, nil
}

// normalizeSkillGap maps one extracted record onto a SkillGap, tolerating the
// field-name variants the upstream models produce. The record is rejected
// when no skill name is present.
func normalizeSkillGap(rec map[string]interface{}) (SkillGap, bool) {
	name := strings.TrimSpace(stringField(rec, "skillName", "skill_name", "skill", "name"))
	if name == "" {
		return SkillGap{}, false
	}
	return SkillGap{
		SkillName:       name,
		GapLevel:        parseLevel(stringField(rec, "gapLevel", "gap_level", "level")),
		ConfidenceScore: clampConfidence(numberField(rec, "confidence", "confidenceScore", "confidence_score")),
		MentionCount:    clampMentions(numberField(rec, "mentions", "mentionCount", "mention_count")),
	}, true
}

// parseLevel folds an arbitrary level string onto the three-value enum by
// substring match. Anything unrecognized is Medium.
func parseLevel(s string) Level {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "low"), strings.Contains(s, "minor"), strings.Contains(s, "small"):
		return LevelLow
	case strings.Contains(s, "high"), strings.Contains(s, "major"), strings.Contains(s, "significant"):
		return LevelHigh
	default:
		return LevelMedium
	}
}

func clampConfidence(v float64, ok bool) float64 {
	if !ok {
		return 70
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampMentions(v float64, ok bool) int {
	if !ok || v < 1 {
		return 1
	}
	return int(v)
}

// stringField returns the first present key rendered as a string.
func stringField(rec map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

// numberField returns the first present key as a float64, accepting numeric
// strings (optionally percent-suffixed).
func numberField(rec map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// fallbackSkillGaps is the generic gap list used when extraction recovers
// nothing usable.
func fallbackSkillGaps(targetRole string) []SkillGap {
	return []SkillGap{
		{SkillName: fmt.Sprintf("Core %s domain knowledge", targetRole), GapLevel: LevelHigh, ConfidenceScore: 70, MentionCount: 1},
		{SkillName: "Professional network in the target field", GapLevel: LevelMedium, ConfidenceScore: 70, MentionCount: 1},
		{SkillName: "Hands-on experience with role-specific tools", GapLevel: LevelMedium, ConfidenceScore: 70, MentionCount: 1},
	}
}
