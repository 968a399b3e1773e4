package collect

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/newsradar-io/newsradar/internal/api"
	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/engine"
	"github.com/newsradar-io/newsradar/internal/events"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/interval"
	"github.com/newsradar-io/newsradar/internal/keywords"
	"github.com/newsradar-io/newsradar/internal/quota"
	"github.com/newsradar-io/newsradar/internal/summary"
	"github.com/newsradar-io/newsradar/internal/tokens"
)

// Handler exposes the collection engine over HTTP.
type Handler struct {
	engine      *engine.Engine
	gaps        *history.Service
	quotaSvc    *quota.Service
	predictor   *tokens.Predictor
	summarySvc  *summary.Service
	articleRepo *articles.Repository
	articleCach *articles.Cache
	keywordRepo *keywords.Repository
	publisher   *events.Publisher
	recentLimit int
	validate    *validator.Validate
}

type Deps struct {
	Engine      *engine.Engine
	Gaps        *history.Service
	Quota       *quota.Service
	Predictor   *tokens.Predictor
	Summary     *summary.Service
	ArticleRepo *articles.Repository
	ArticleCach *articles.Cache
	KeywordRepo *keywords.Repository
	Publisher   *events.Publisher
	RecentLimit int
}

func NewHandler(d Deps) *Handler {
	if d.RecentLimit <= 0 {
		d.RecentLimit = 50
	}
	return &Handler{
		engine:      d.Engine,
		gaps:        d.Gaps,
		quotaSvc:    d.Quota,
		predictor:   d.Predictor,
		summarySvc:  d.Summary,
		articleRepo: d.ArticleRepo,
		articleCach: d.ArticleCach,
		keywordRepo: d.KeywordRepo,
		publisher:   d.Publisher,
		recentLimit: d.RecentLimit,
		validate:    validator.New(),
	}
}

func (h *Handler) keywordFromPath(r *http.Request) (keywords.Keyword, *api.AppError) {
	id, err := uuid.Parse(chi.URLParam(r, "keywordID"))
	if err != nil {
		return keywords.Keyword{}, api.NewBadRequestError("keyword id must be a UUID")
	}
	kw, err := h.keywordRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, keywords.ErrNotFound) {
			return keywords.Keyword{}, api.NewNotFoundError("keyword not found")
		}
		slog.Error("loading keyword", "keyword_id", id, "error", err)
		return keywords.Keyword{}, api.ErrInternalServer
	}
	return kw, nil
}

// ListArticles returns the keyword's recent articles, cache first.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	kw, appErr := h.keywordFromPath(r)
	if appErr != nil {
		api.HandleError(w, appErr)
		return
	}

	if h.articleCach != nil {
		if cached, err := h.articleCach.Recent(r.Context(), kw.ID, h.recentLimit); err == nil && len(cached) > 0 {
			api.JSON(w, http.StatusOK, cached)
			return
		}
	}

	arts, err := h.articleRepo.RecentByKeyword(r.Context(), kw.ID, h.recentLimit)
	if err != nil {
		slog.Error("listing articles", "keyword_id", kw.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, arts)
}

type gapView struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PreviewGaps shows which windows a collection run would fetch, without
// spending anything. An explicit range comes as from/to query params.
func (h *Handler) PreviewGaps(w http.ResponseWriter, r *http.Request) {
	kw, appErr := h.keywordFromPath(r)
	if appErr != nil {
		api.HandleError(w, appErr)
		return
	}

	requested, err := rangeFromQuery(r)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return
	}

	gaps, err := h.gaps.ComputeGaps(r.Context(), kw.ID, requested)
	if err != nil {
		slog.Error("computing gaps", "keyword_id", kw.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	views := make([]gapView, 0, len(gaps))
	for _, g := range gaps {
		views = append(views, gapView{Start: g.Start, End: g.End})
	}
	api.JSON(w, http.StatusOK, views)
}

type collectRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
	Async bool       `json:"async"`
}

// TriggerCollect runs a manual collection cycle. With async=true the run is
// queued for the scheduler instead of executed in-request.
func (h *Handler) TriggerCollect(w http.ResponseWriter, r *http.Request) {
	kw, appErr := h.keywordFromPath(r)
	if appErr != nil {
		api.HandleError(w, appErr)
		return
	}

	var req collectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.HandleError(w, api.ErrBadRequest)
			return
		}
	}

	var requested *interval.Interval
	if req.Start != nil && req.End != nil {
		iv := interval.New(*req.Start, *req.End)
		if iv.IsEmpty() {
			api.HandleError(w, api.NewBadRequestError("start must be before end"))
			return
		}
		requested = &iv
	} else if (req.Start == nil) != (req.End == nil) {
		api.HandleError(w, api.NewBadRequestError("start and end must be given together"))
		return
	}

	if req.Async && h.publisher != nil {
		task := events.CollectTask{
			KeywordID:   kw.ID,
			UserID:      kw.UserID,
			RequestedAt: time.Now().UTC(),
		}
		if requested != nil {
			task.RequestedStart = &requested.Start
			task.RequestedEnd = &requested.End
		}
		if err := h.publisher.PublishCollectTask(r.Context(), task); err != nil {
			slog.Error("queueing collection task", "keyword_id", kw.ID, "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		api.JSONMessage(w, http.StatusAccepted, "collection queued")
		return
	}

	res := h.engine.RunCollectionCycle(r.Context(), engine.CycleRequest{
		KeywordID:   kw.ID,
		Requested:   requested,
		TriggerType: history.TriggerManual,
	})

	switch res.Outcome {
	case engine.OutcomeQuotaDenied:
		api.HandleError(w, api.ErrQuotaExceeded)
	case engine.OutcomeFailed:
		slog.Error("manual collection failed", "keyword_id", kw.ID, "error", res.Err)
		api.HandleError(w, api.ErrInternalServer)
	default:
		api.JSON(w, http.StatusOK, map[string]any{
			"outcome":         res.Outcome,
			"articles_stored": res.ArticlesStored,
			"duplicates":      res.Duplicates,
			"pages_spent":     res.PagesSpent,
			"gaps_covered":    res.GapsCovered,
			"articles":        res.Articles,
		})
	}
}

type summaryRequest struct {
	TargetDate string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
}

// GenerateSummary produces an LLM digest over the keyword's recent articles.
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	if h.summarySvc == nil {
		api.HandleError(w, &api.AppError{Code: http.StatusServiceUnavailable, Message: "summary generation is not configured"})
		return
	}
	kw, appErr := h.keywordFromPath(r)
	if appErr != nil {
		api.HandleError(w, appErr)
		return
	}

	var req summaryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.HandleError(w, api.ErrBadRequest)
			return
		}
	}
	if req.TargetDate != "" && req.TargetDate != summary.TargetLatest {
		if err := h.validate.Struct(req); err != nil {
			api.HandleError(w, api.NewValidationError("target_date must be YYYY-MM-DD or \"latest\""))
			return
		}
	}

	arts, err := h.articleRepo.RecentByKeyword(r.Context(), kw.ID, h.recentLimit)
	if err != nil {
		slog.Error("loading articles for summary", "keyword_id", kw.ID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	sum, err := h.summarySvc.Generate(r.Context(), kw.UserID, kw.ID, req.TargetDate, kw.Text, arts)
	if err != nil {
		switch {
		case errors.Is(err, summary.ErrAlreadyPending):
			api.HandleError(w, api.ErrAlreadyRunning)
		case errors.Is(err, summary.ErrBudgetExceeded):
			api.HandleError(w, api.ErrTokenBudget)
		case errors.Is(err, summary.ErrNoArticles):
			api.HandleError(w, api.NewNotFoundError("no articles to summarize"))
		default:
			slog.Error("generating summary", "keyword_id", kw.ID, "error", err)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	if err := h.publisher.PublishSummaryGenerated(r.Context(), events.SummaryGenerated{
		KeywordID:   kw.ID,
		UserID:      kw.UserID,
		TargetDate:  sum.TargetDate,
		Articles:    sum.Articles,
		TokensSpent: sum.TokensSpent,
		GeneratedAt: sum.GeneratedAt,
	}); err != nil {
		slog.Warn("publishing summary event", "error", err)
	}

	api.JSON(w, http.StatusOK, sum)
}

// GetQuota returns the fair-share snapshot for a user, optionally narrowed
// to one keyword.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("user_id query param must be a UUID"))
		return
	}

	var keywordID *uuid.UUID
	if raw := r.URL.Query().Get("keyword_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("keyword_id query param must be a UUID"))
			return
		}
		keywordID = &id
	}

	snap, err := h.quotaSvc.Snapshot(r.Context(), userID, keywordID)
	if err != nil {
		slog.Error("loading quota snapshot", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"usage_date":        snap.UsageDate.Format("2006-01-02"),
		"user_quota":        snap.UserQuota,
		"user_used":         snap.UserUsed,
		"user_remaining":    snap.UserRemaining(),
		"keyword_quota":     snap.KeywordQuota,
		"keyword_used":      snap.KeywordUsed,
		"keyword_remaining": snap.KeywordRemaining(),
		"next_reset_at":     h.quotaSvc.NextReset(),
	})
}

// GetTokens returns today's token spend and its end-of-day projection.
func (h *Handler) GetTokens(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.predictor.UsageStatus(r.Context()))
}

func rangeFromQuery(r *http.Request) (*interval.Interval, error) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, errors.New("from and to must be given together")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return nil, errors.New("from must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return nil, errors.New("to must be RFC3339")
	}
	iv := interval.New(start, end)
	if iv.IsEmpty() {
		return nil, errors.New("from must be before to")
	}
	return &iv, nil
}
