package diagnose

import (
	"encoding/json"
	"fmt"
)

// TagFinding is a taxonomy tag as assigned by the model, with its
// one-sentence improvement advice.
type TagFinding struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Advice      string `json:"advice"`
}

// Result is the structured diagnosis returned by the model.
type Result struct {
	Score               int          `json:"score"`
	Strengths           []string     `json:"strengths"`
	Tags                []TagFinding `json:"tags"`
	ImproveTips         []string     `json:"improve_tips"`
	ImprovedExplanation string       `json:"improved_explanation"`
	Explanation30Sec    string       `json:"explanation_30sec"`
}

// Rank derives the rank from the result score.
func (r *Result) Rank() Rank {
	return RankForScore(r.Score)
}

// parseResult decodes a model reply into a Result. Missing keys decode to
// zero values rather than failing; out-of-contract values are brought back
// in range so a sloppy reply still produces a usable diagnosis.
func parseResult(content string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model reply as JSON: %w", err)
	}

	result.sanitize()
	return &result, nil
}

func (r *Result) sanitize() {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	if len(r.Tags) > MaxTags {
		r.Tags = r.Tags[:MaxTags]
	}
	// Backfill taxonomy descriptions the model left out.
	for i, tag := range r.Tags {
		if tag.Description != "" {
			continue
		}
		for _, t := range Taxonomy {
			if t.Name == tag.Name {
				r.Tags[i].Description = t.Description
				break
			}
		}
	}
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.ImproveTips == nil {
		r.ImproveTips = []string{}
	}
}
