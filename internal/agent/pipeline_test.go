package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/llm"
)

type fakeMeta struct {
	meta domain.TickerMetadata
	err  error
}

func (f fakeMeta) Metadata(context.Context, string) (domain.TickerMetadata, error) {
	return f.meta, f.err
}

type fakeNews struct {
	trace string
	items []domain.Article
	err   error
	terms []string
	limit int
}

func (f *fakeNews) News(_ context.Context, _ string, terms []string, limit int) (string, []domain.Article, error) {
	f.terms = terms
	f.limit = limit
	return f.trace, f.items, f.err
}

type fakePredictor struct {
	dir domain.Direction
	err error
}

func (f fakePredictor) Predict(_ context.Context, ticker string) (domain.Prediction, error) {
	if f.err != nil {
		return domain.Prediction{}, f.err
	}
	return domain.Prediction{Ticker: ticker, Direction: f.dir}, nil
}

type fakeAnalyst struct {
	terms     []string
	planErr   error
	sentiment domain.Sentiment
	sentErr   error
	report    llm.ReportInput
}

func (f *fakeAnalyst) PlanNewsQuery(context.Context, string, domain.TickerMetadata) ([]string, error) {
	return f.terms, f.planErr
}

func (f *fakeAnalyst) ScoreSentiment(context.Context, []domain.Article) (domain.Sentiment, error) {
	return f.sentiment, f.sentErr
}

func (f *fakeAnalyst) Summarize(_ context.Context, in llm.ReportInput) (string, error) {
	f.report = in
	return "final report", nil
}

func TestAlign(t *testing.T) {
	up := &domain.Prediction{Direction: domain.DirectionUp}
	down := &domain.Prediction{Direction: domain.DirectionDown}

	assert.Equal(t, domain.AlignmentAligned, Align(up, domain.SentimentPositive))
	assert.Equal(t, domain.AlignmentAligned, Align(down, domain.SentimentNegative))
	assert.Equal(t, domain.AlignmentConflict, Align(up, domain.SentimentNegative))
	assert.Equal(t, domain.AlignmentConflict, Align(down, domain.SentimentPositive))
	assert.Equal(t, domain.AlignmentUnknown, Align(up, domain.SentimentNeutral))
	assert.Equal(t, domain.AlignmentUnknown, Align(up, domain.SentimentMixed))
	assert.Equal(t, domain.AlignmentUnknown, Align(up, domain.SentimentNoNews))
	assert.Equal(t, domain.AlignmentUnknown, Align(nil, domain.SentimentPositive))
}

func TestRunFullPipeline(t *testing.T) {
	news := &fakeNews{trace: "stocknews+newsapi", items: []domain.Article{{Title: "Apple up"}}}
	analyst := &fakeAnalyst{
		terms:     []string{"Apple Inc"},
		sentiment: domain.Sentiment{Label: domain.SentimentPositive, Score: 0.7, Headlines: []string{"Apple up"}},
	}
	p, err := New(Deps{
		Metadata:  fakeMeta{meta: domain.TickerMetadata{Symbol: "AAPL", LongName: "Apple Inc."}},
		News:      news,
		Predictor: fakePredictor{dir: domain.DirectionUp},
		Analyst:   analyst,
	}, nil)
	require.NoError(t, err)

	st, err := p.Run(context.Background(), " aapl ", " will it rise? ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", st.Ticker)
	assert.Equal(t, "will it rise?", st.Question)
	assert.Equal(t, 7, st.Version)
	assert.Equal(t, []string{
		StageMetadata, StagePlanNewsQuery, StageNews, StageSentiment, StagePredict, StageAlignment, StageSummarize,
	}, st.Stages)
	assert.Equal(t, []string{"Apple Inc"}, news.terms)
	assert.Equal(t, NewsLimit, news.limit)
	assert.Equal(t, "stocknews+newsapi", st.NewsProvider)
	assert.Equal(t, domain.AlignmentAligned, st.Alignment)
	assert.Equal(t, "final report", st.Report)
	assert.Equal(t, domain.AlignmentAligned, analyst.report.Alignment)
	assert.Empty(t, st.Warnings)
}

func TestRunDegradesOnSoftFailures(t *testing.T) {
	news := &fakeNews{trace: "none"}
	analyst := &fakeAnalyst{
		planErr:   errors.New("llm down"),
		sentiment: domain.Sentiment{Label: domain.SentimentNoNews},
	}
	p, err := New(Deps{
		Metadata:  fakeMeta{err: errors.New("timeout")},
		News:      news,
		Predictor: fakePredictor{err: errors.New("no history")},
		Analyst:   analyst,
	}, nil)
	require.NoError(t, err)

	st, err := p.Run(context.Background(), "zzzz", "")
	require.NoError(t, err)
	assert.Equal(t, "ZZZZ", st.Metadata.Symbol)
	assert.Equal(t, []string{"ZZZZ"}, news.terms)
	assert.Nil(t, st.Prediction)
	assert.Equal(t, domain.AlignmentUnknown, st.Alignment)
	assert.Len(t, st.Warnings, 3)
}

func TestRunStopsOnHardFailure(t *testing.T) {
	analyst := &fakeAnalyst{terms: []string{"x"}}
	p, err := New(Deps{
		Metadata:  fakeMeta{},
		News:      &fakeNews{err: errors.New("bad config")},
		Predictor: fakePredictor{dir: domain.DirectionUp},
		Analyst:   analyst,
	}, nil)
	require.NoError(t, err)

	st, err := p.Run(context.Background(), "AAPL", "q")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageNews, se.Stage)
	assert.Equal(t, 2, st.Version, "state of the last completed stage is returned")
}

func TestStagesDoNotMutateEarlierRevisions(t *testing.T) {
	var snapshots []State
	record := func(name string) Stage {
		return Stage{Name: name, Run: func(_ context.Context, s State) (State, error) {
			snapshots = append(snapshots, s)
			return s, nil
		}}
	}

	_, err := NewPipeline(nil, record("a"), record("b"), record("c")).Run(context.Background(), "AAPL", "")
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, []string{"a"}, snapshots[0].Stages)
	assert.Equal(t, []string{"a", "b"}, snapshots[1].Stages)
	assert.Equal(t, 3, snapshots[2].Version)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{}, nil)
	require.Error(t, err)
}

func TestRunRejectsBlankTicker(t *testing.T) {
	_, err := NewPipeline(nil).Run(context.Background(), " ", "")
	require.Error(t, err)
}
