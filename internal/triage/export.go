package triage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ExportComponents are the component scores a reviewer sees
type ExportComponents struct {
	NTEE       float64 `json:"ntee"`
	Geographic float64 `json:"geographic"`
	Coherence  float64 `json:"coherence"`
	GrantSize  float64 `json:"grant_size"`
}

// ExportItem is one entry of the review dashboard feed
type ExportItem struct {
	ItemID          string           `json:"item_id"`
	ProfileName     string           `json:"profile_name"`
	FoundationName  string           `json:"foundation_name"`
	CompositeScore  float64          `json:"composite_score"`
	Confidence      float64          `json:"confidence"`
	AbstainReason   string           `json:"abstain_reason"`
	ComponentScores ExportComponents `json:"component_scores"`
	Priority        Priority         `json:"priority"`
	Status          Status           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	AssignedTo      *string          `json:"assigned_to"`
	Tags            []string         `json:"tags"`
}

// ExportItems returns the pending and in-review items in review order
func (q *Queue) ExportItems() []ExportItem {
	q.mu.Lock()
	items := make([]Item, 0, len(q.active))
	for _, it := range q.active {
		items = append(items, it.clone())
	}
	q.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return before(&items[i], &items[j]) })

	out := make([]ExportItem, 0, len(items))
	for _, it := range items {
		e := ExportItem{
			ItemID:         it.ID,
			ProfileName:    it.ProfileName,
			FoundationName: it.FoundationName,
			CompositeScore: it.CompositeScore,
			Confidence:     it.Confidence,
			AbstainReason:  it.AbstainReason,
			ComponentScores: ExportComponents{
				NTEE:       it.Components.NTEE,
				Geographic: it.Components.Geographic,
				Coherence:  it.Components.Coherence,
				GrantSize:  it.Components.GrantSize,
			},
			Priority:  it.Priority,
			Status:    it.Status,
			CreatedAt: it.CreatedAt,
			Tags:      it.Tags,
		}
		if it.AssignedTo != "" {
			reviewer := it.AssignedTo
			e.AssignedTo = &reviewer
		}
		if e.Tags == nil {
			e.Tags = []string{}
		}
		out = append(out, e)
	}
	return out
}

// ExportForReview renders ExportItems as an indented JSON array
func (q *Queue) ExportForReview() ([]byte, error) {
	data, err := json.MarshalIndent(q.ExportItems(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal review export: %w", err)
	}
	return data, nil
}
