package models

// Result is one ranked search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Date    string  `json:"date,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
