package transition

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/careershift/careershift/internal/extract"
)

// maxResultsPerQuery bounds a single search call; minResults is the threshold
// below which alternate query phrasings are tried.
const (
	maxResultsPerQuery = 10
	minResults         = 2
)

var errNoStories = errors.New("no transition stories recovered")

// researchStage searches the web for narratives about the requested career
// change, turns each hit into a Story and persists the new ones. Previously
// stored stories are kept and deduplicated by URL, so a re-run without
// forceRefresh only appends. It fails only when nothing at all could be
// recovered; the orchestrator then substitutes the fallback stories.
func (o *Orchestrator) researchStage(ctx context.Context, req AnalysisRequest) ([]Story, error) {
	stories, err := o.repo.StoriesByTransition(ctx, req.TransitionID)
	if err != nil {
		o.logger.Printf("[ORCH] warn: loading stored stories for transition %d failed: %v", req.TransitionID, err)
		stories = nil
	}
	seen := make(map[string]struct{}, len(stories))
	for _, s := range stories {
		if s.URL != "" {
			seen[s.URL] = struct{}{}
		}
	}

	var searchErr error
	found := 0
	for i, q := range searchQueries(req.CurrentRole, req.TargetRole) {
		if i > 0 && found >= minResults {
			break
		}
		results, err := o.searcher.Discover(ctx, q, maxResultsPerQuery)
		if err != nil {
			o.logger.Printf("[ORCH] warn: search %q failed: %v", q, err)
			searchErr = err
			continue
		}
		found += len(results)
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}

			story := o.storyFromResult(ctx, req.TransitionID, r.Title, r.Snippet, r.URL, r.Date)
			if story.Content == "" {
				continue
			}
			if err := o.repo.CreateStory(ctx, &story); err != nil {
				o.logger.Printf("[ORCH] warn: storing story %q failed: %v", story.URL, err)
			}
			stories = append(stories, story)
		}
	}

	if len(stories) == 0 {
		if searchErr != nil {
			return nil, fmt.Errorf("research: %w", searchErr)
		}
		return nil, errNoStories
	}
	return stories, nil
}

// storyFromResult builds a Story from one search hit. When a page fetcher is
// configured the full article text replaces the snippet. Snippets that embed
// a structured record are unpacked field by field.
func (o *Orchestrator) storyFromResult(ctx context.Context, transitionID int64, title, snippet, link, date string) Story {
	story := Story{
		TransitionID: transitionID,
		Source:       sourceLabel(title, link),
		Content:      strings.TrimSpace(snippet),
		URL:          link,
		Date:         date,
	}

	if obj, ok := extract.Object(snippet, nil); ok {
		if v, _ := obj["content"].(string); v != "" {
			story.Content = strings.TrimSpace(v)
		}
		if v, _ := obj["source"].(string); v != "" {
			story.Source = v
		}
		if v, _ := obj["url"].(string); v != "" {
			story.URL = v
		}
		if v, _ := obj["date"].(string); v != "" {
			story.Date = v
		}
	}

	if o.fetcher != nil {
		page, err := o.fetcher.Exec(ctx, story.URL)
		if err != nil {
			o.logger.Printf("[ORCH] warn: fetching %s failed, keeping snippet: %v", story.URL, err)
		} else if strings.TrimSpace(page.Text) != "" {
			story.Content = page.Text
			if page.Title != "" {
				story.Source = page.Title
			}
			if story.Date == "" {
				story.Date = page.PublishedAt
			}
		}
	}
	return story
}

func sourceLabel(title, link string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		return u.Host
	}
	return "web"
}

// fallbackStories are the hand-authored narratives substituted when research
// finds nothing. Pure and deterministic apart from the role names.
func fallbackStories(currentRole, targetRole string) []Story {
	return []Story{
		{
			Source: "Community discussion",
			Content: fmt.Sprintf("I spent six years as a %s before moving into a %s role. "+
				"The hardest part was proving I could do the new job before anyone would let me do it. "+
				"I took on small projects in the new area, built a portfolio, and leaned on people who had made a similar move. "+
				"It took about a year of deliberate effort before the first offer came.", currentRole, targetRole),
		},
		{
			Source: "Career retrospective",
			Content: fmt.Sprintf("Switching from %s to %s meant starting over in some ways and not in others. "+
				"My existing experience transferred more than I expected, but I still had real gaps to close. "+
				"A structured study plan, a mentor in the target field, and honest feedback on where I fell short made the difference. "+
				"Most people I compared notes with landed the transition within eighteen months.", currentRole, targetRole),
		},
	}
}
