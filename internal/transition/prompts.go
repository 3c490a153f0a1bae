package transition

import (
	"fmt"
	"strings"
)

const skillGapSystemPrompt = `You are a career analyst. Given narratives about people who made a specific career change and the user's existing skills, identify the skills the user still needs to develop.
Respond with a JSON array only, no prose. Each element: {"skillName": string, "gapLevel": "low"|"medium"|"high", "confidence": number 0-100, "mentions": integer}.`

const insightSystemPrompt = `You are a career analyst. Given transition narratives and a skill-gap list, summarize what matters about this career change.
Respond with a JSON object only, no prose: {"keyObservations": [string], "commonChallenges": [string], "successRate": number 0-100, "timeframe": string, "successFactors": [string]}.`

const planSystemPrompt = `You are a career coach. Given a skill-gap list and insights about a career change, produce a development plan.
Respond with a JSON object only, no prose: {"milestones": [{"title": string, "description": string, "priority": "low"|"medium"|"high", "durationWeeks": integer, "resources": [{"title": string, "url": string, "type": string}]}]}.
Order milestones by priority, highest first.`

// searchQueries returns the primary research query plus alternate phrasings
// tried when the primary yields too few results.
func searchQueries(currentRole, targetRole string) []string {
	return []string{
		fmt.Sprintf("career transition from %s to %s success story", currentRole, targetRole),
		fmt.Sprintf("how I went from %s to %s", currentRole, targetRole),
		fmt.Sprintf("%s to %s career change experience", currentRole, targetRole),
		fmt.Sprintf("switching careers %s %s advice", currentRole, targetRole),
	}
}

func buildSkillGapPrompt(req AnalysisRequest, stories []Story, roleSkills []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Career change: %s -> %s\n\n", req.CurrentRole, req.TargetRole)
	if len(req.ExistingSkills) > 0 {
		fmt.Fprintf(&b, "The user already has these skills: %s\n\n", strings.Join(req.ExistingSkills, ", "))
	}
	if len(roleSkills) > 0 {
		fmt.Fprintf(&b, "Skills commonly required for %s: %s\n\n", req.TargetRole, strings.Join(roleSkills, ", "))
	}
	b.WriteString("Transition narratives:\n")
	writeStories(&b, stories)
	b.WriteString("\nList the skill gaps as a JSON array.")
	return b.String()
}

func buildInsightPrompt(req AnalysisRequest, stories []Story, gaps []SkillGap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Career change: %s -> %s\n\n", req.CurrentRole, req.TargetRole)
	b.WriteString("Identified skill gaps:\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "- %s (%s)\n", g.SkillName, g.GapLevel)
	}
	b.WriteString("\nTransition narratives:\n")
	writeStories(&b, stories)
	b.WriteString("\nSummarize the key observations and common challenges as a JSON object.")
	return b.String()
}

func buildPlanPrompt(req AnalysisRequest, gaps []SkillGap, insights InsightSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Career change: %s -> %s\n\n", req.CurrentRole, req.TargetRole)
	if len(req.ExistingSkills) > 0 {
		fmt.Fprintf(&b, "Existing skills: %s\n\n", strings.Join(req.ExistingSkills, ", "))
	}
	b.WriteString("Skill gaps to close:\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "- %s (gap: %s, confidence: %.0f)\n", g.SkillName, g.GapLevel, g.ConfidenceScore)
	}
	if len(insights.KeyObservations) > 0 {
		b.WriteString("\nKey observations:\n")
		for _, o := range insights.KeyObservations {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(insights.CommonChallenges) > 0 {
		b.WriteString("\nCommon challenges:\n")
		for _, c := range insights.CommonChallenges {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nProduce the development plan as a JSON object.")
	return b.String()
}

const maxStoryChars = 1500

func writeStories(b *strings.Builder, stories []Story) {
	for i, s := range stories {
		content := s.Content
		if len(content) > maxStoryChars {
			content = content[:maxStoryChars]
		}
		fmt.Fprintf(b, "%d. [%s] %s\n", i+1, s.Source, content)
	}
}
