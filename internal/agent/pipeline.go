// Package agent runs the multi-stage analysis: metadata, news query
// planning, news, headline tone, prediction, alignment and the report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/llm"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

const (
	StageMetadata      = "metadata"
	StagePlanNewsQuery = "plan_news_query"
	StageNews          = "news"
	StageSentiment     = "news_sentiment"
	StagePredict       = "predict"
	StageAlignment     = "alignment"
	StageSummarize     = "summarize"

	// NewsLimit is the number of articles the news stage keeps.
	NewsLimit = 10
)

type MetadataSource interface {
	Metadata(ctx context.Context, ticker string) (domain.TickerMetadata, error)
}

// NewsSource returns aggregated news with the provider trace.
type NewsSource interface {
	News(ctx context.Context, ticker string, terms []string, limit int) (string, []domain.Article, error)
}

type Predictor interface {
	Predict(ctx context.Context, ticker string) (domain.Prediction, error)
}

// Analyst is the model-backed part of the pipeline.
type Analyst interface {
	PlanNewsQuery(ctx context.Context, ticker string, meta domain.TickerMetadata) ([]string, error)
	ScoreSentiment(ctx context.Context, items []domain.Article) (domain.Sentiment, error)
	Summarize(ctx context.Context, in llm.ReportInput) (string, error)
}

// Deps are the collaborators the stages call.
type Deps struct {
	Metadata  MetadataSource
	News      NewsSource
	Predictor Predictor
	Analyst   Analyst
}

// StageFunc computes the next state revision.
type StageFunc func(ctx context.Context, s State) (State, error)

// Stage is a named pipeline step.
type Stage struct {
	Name string
	Run  StageFunc
}

// StageError reports which stage aborted the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("agent stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Pipeline executes stages in order.
type Pipeline struct {
	stages []Stage
	log    logger.Logger
}

// New wires the default stage sequence over deps.
func New(deps Deps, log logger.Logger) (*Pipeline, error) {
	switch {
	case deps.Metadata == nil:
		return nil, errors.New("agent: metadata source is required")
	case deps.News == nil:
		return nil, errors.New("agent: news source is required")
	case deps.Predictor == nil:
		return nil, errors.New("agent: predictor is required")
	case deps.Analyst == nil:
		return nil, errors.New("agent: analyst is required")
	}

	log = logger.Ensure(log)
	return NewPipeline(log,
		Stage{StageMetadata, metadataStage(deps.Metadata, log)},
		Stage{StagePlanNewsQuery, planStage(deps.Analyst, log)},
		Stage{StageNews, newsStage(deps.News)},
		Stage{StageSentiment, sentimentStage(deps.Analyst)},
		Stage{StagePredict, predictStage(deps.Predictor, log)},
		Stage{StageAlignment, alignmentStage},
		Stage{StageSummarize, summarizeStage(deps.Analyst)},
	), nil
}

// NewPipeline builds a pipeline from explicit stages.
func NewPipeline(log logger.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, log: logger.Ensure(log)}
}

// Run executes every stage for ticker and returns the final state.
func (p *Pipeline) Run(ctx context.Context, ticker, question string) (State, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return State{}, errors.New("ticker is required")
	}

	state := State{
		Ticker:    ticker,
		Question:  strings.TrimSpace(question),
		Alignment: domain.AlignmentUnknown,
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return state, &StageError{Stage: stage.Name, Err: err}
		}

		start := time.Now()
		next, err := stage.Run(ctx, state.next(stage.Name))
		if err != nil {
			p.log.ErrorObj("agent stage failed", "agent_stage_error", map[string]any{
				"ticker": ticker,
				"stage":  stage.Name,
				"error":  err.Error(),
			})
			return state, &StageError{Stage: stage.Name, Err: err}
		}
		state = next

		p.log.DebugObj("agent stage completed", "agent_stage", map[string]any{
			"ticker":      ticker,
			"stage":       stage.Name,
			"version":     state.Version,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	p.log.InfoObj("agent run completed", "agent_done", map[string]any{
		"ticker":    ticker,
		"alignment": state.Alignment,
		"provider":  state.NewsProvider,
		"warnings":  len(state.Warnings),
	})
	return state, nil
}

func metadataStage(src MetadataSource, log logger.Logger) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		meta, err := src.Metadata(ctx, s.Ticker)
		if err != nil {
			log.WarnObj("ticker metadata unavailable", "metadata_error", map[string]any{
				"ticker": s.Ticker,
				"error":  err.Error(),
			})
			s = s.warn("metadata unavailable: " + err.Error())
			meta = domain.TickerMetadata{}
		}
		if meta.Symbol == "" {
			meta.Symbol = s.Ticker
		}
		s.Metadata = meta
		return s, nil
	}
}

func planStage(analyst Analyst, log logger.Logger) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		terms, err := analyst.PlanNewsQuery(ctx, s.Ticker, s.Metadata)
		if err != nil {
			log.WarnObj("news query planning failed, searching by ticker", "plan_error", map[string]any{
				"ticker": s.Ticker,
				"error":  err.Error(),
			})
			s = s.warn("news query planning failed: " + err.Error())
			terms = nil
		}
		if len(terms) == 0 {
			terms = []string{s.Ticker}
		}
		s.SearchTerms = terms
		return s, nil
	}
}

func newsStage(src NewsSource) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		terms := s.SearchTerms
		if len(terms) == 0 {
			terms = []string{s.Ticker}
		}
		trace, items, err := src.News(ctx, s.Ticker, terms, NewsLimit)
		if err != nil {
			return s, err
		}
		s.NewsProvider = trace
		s.News = items
		return s, nil
	}
}

func sentimentStage(analyst Analyst) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		sent, err := analyst.ScoreSentiment(ctx, s.News)
		if err != nil {
			return s, err
		}
		s.Sentiment = sent
		return s, nil
	}
}

func predictStage(pred Predictor, log logger.Logger) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		p, err := pred.Predict(ctx, s.Ticker)
		if err != nil {
			log.WarnObj("prediction unavailable", "predict_error", map[string]any{
				"ticker": s.Ticker,
				"error":  err.Error(),
			})
			s.Prediction = nil
			return s.warn("prediction unavailable: " + err.Error()), nil
		}
		s.Prediction = &p
		return s, nil
	}
}

func alignmentStage(_ context.Context, s State) (State, error) {
	s.Alignment = Align(s.Prediction, s.Sentiment.Label)
	return s, nil
}

func summarizeStage(analyst Analyst) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		report, err := analyst.Summarize(ctx, llm.ReportInput{
			Ticker:     s.Ticker,
			Question:   s.Question,
			Prediction: s.Prediction,
			Sentiment:  s.Sentiment,
			Alignment:  s.Alignment,
			Provider:   s.NewsProvider,
			News:       s.News,
		})
		if err != nil {
			return s, err
		}
		s.Report = report
		return s, nil
	}
}
