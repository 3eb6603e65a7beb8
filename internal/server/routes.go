package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Adda-Baaj/stock-pulse/internal/app"
	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const maxBodyBytes = 1 << 16

type analyzeRequest struct {
	Ticker  string `json:"ticker" validate:"required,max=15"`
	Explain *bool  `json:"explain"`
}

type agentRequest struct {
	Ticker   string `json:"ticker" validate:"required,max=15"`
	Question string `json:"question" validate:"required,max=2000"`
}

type agentResponse struct {
	Ticker             string                `json:"ticker"`
	Question           string                `json:"question"`
	ModelPrediction    *domain.Direction     `json:"model_prediction"`
	Indicators         *domain.Indicators    `json:"indicators,omitempty"`
	NewsSentimentLabel domain.SentimentLabel `json:"news_sentiment_label"`
	NewsSentimentScore float64               `json:"news_sentiment_score"`
	Alignment          domain.Alignment      `json:"alignment"`
	NewsProvider       string                `json:"news_provider"`
	NewsHeadlinesUsed  []string              `json:"news_headlines_used"`
	Report             string                `json:"report"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health_check", s.handleHealth)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /analyze_agent", s.handleAnalyzeAgent)
	mux.HandleFunc("GET /news/{ticker}", s.handleNews)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	explain := req.Explain == nil || *req.Explain

	res, err := s.svc.Analyze(r.Context(), req.Ticker, explain)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !s.decode(w, r, &req) {
		return
	}

	st, err := s.svc.AnalyzeAgent(r.Context(), req.Ticker, req.Question)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := agentResponse{
		Ticker:             st.Ticker,
		Question:           st.Question,
		NewsSentimentLabel: st.Sentiment.Label,
		NewsSentimentScore: st.Sentiment.Score,
		Alignment:          st.Alignment,
		NewsProvider:       st.NewsProvider,
		NewsHeadlinesUsed:  st.Sentiment.Headlines,
		Report:             st.Report,
	}
	if st.Prediction != nil {
		dir := st.Prediction.Direction
		ind := st.Prediction.Indicators
		resp.ModelPrediction = &dir
		resp.Indicators = &ind
	}
	if resp.NewsHeadlinesUsed == nil {
		resp.NewsHeadlinesUsed = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(r.PathValue("ticker"))
	if ticker == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "ticker is required"})
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be an integer between 1 and 100"})
			return
		}
		limit = n
	}

	var terms []string
	for _, t := range strings.Split(q.Get("terms"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}

	res, err := s.svc.LatestNews(r.Context(), ticker, terms, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads and validates a JSON body, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body: " + err.Error()})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: validationMessage(err)})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, app.ErrInvalidTicker) {
		status = http.StatusBadRequest
	}
	s.log.ErrorObj("request failed", "http_error", map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
