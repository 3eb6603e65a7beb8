package agent

import (
	"slices"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

// State is the record threaded through the pipeline. Stages receive it by
// value and return the next revision; Version grows by one per stage.
type State struct {
	Version  int      `json:"version"`
	Ticker   string   `json:"ticker"`
	Question string   `json:"question"`
	Stages   []string `json:"stages"`
	Warnings []string `json:"warnings,omitempty"`

	Metadata     domain.TickerMetadata `json:"ticker_metadata"`
	SearchTerms  []string              `json:"news_search_terms"`
	NewsProvider string                `json:"news_provider"`
	News         []domain.Article      `json:"news_items"`
	Sentiment    domain.Sentiment      `json:"news_sentiment"`
	Prediction   *domain.Prediction    `json:"prediction,omitempty"`
	Alignment    domain.Alignment      `json:"alignment"`
	Report       string                `json:"report"`
}

// next returns a copy of s for the stage named stage, with the bookkeeping
// slices detached so earlier revisions stay untouched.
func (s State) next(stage string) State {
	s.Version++
	s.Stages = append(slices.Clone(s.Stages), stage)
	s.Warnings = slices.Clone(s.Warnings)
	return s
}

func (s State) warn(msg string) State {
	s.Warnings = append(s.Warnings, msg)
	return s
}

// Align compares the model direction with the headline tone.
func Align(pred *domain.Prediction, label domain.SentimentLabel) domain.Alignment {
	if pred == nil || pred.Direction == "" || label == domain.SentimentNoNews || label == "" {
		return domain.AlignmentUnknown
	}

	var newsDir domain.Direction
	switch label {
	case domain.SentimentPositive:
		newsDir = domain.DirectionUp
	case domain.SentimentNegative:
		newsDir = domain.DirectionDown
	default:
		return domain.AlignmentUnknown
	}

	if newsDir == pred.Direction {
		return domain.AlignmentAligned
	}
	return domain.AlignmentConflict
}
