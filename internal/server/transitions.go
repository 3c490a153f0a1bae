package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careershift/careershift/internal/store"
	"github.com/careershift/careershift/internal/transition"
)

// TransitionsHandler exposes the analysis pipeline over HTTP.
type TransitionsHandler struct {
	Store   *store.Store
	Orch    *transition.Orchestrator
	Logger  *log.Logger
	Timeout time.Duration
}

func (h *TransitionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/analyze", h.analyze)
	g.GET("/:id/status", h.status)
	g.GET("/:id/result", h.result)
}

type createTransitionRequest struct {
	CurrentRole string `json:"current_role"`
	TargetRole  string `json:"target_role"`
}

func (h *TransitionsHandler) create(c echo.Context) error {
	var req createTransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.CurrentRole == "" || req.TargetRole == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "current_role and target_role are required")
	}
	t := transition.Transition{CurrentRole: req.CurrentRole, TargetRole: req.TargetRole}
	if err := h.Store.CreateTransition(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TransitionsHandler) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.Store.GetTransition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "transition not found")
	}
	return c.JSON(http.StatusOK, t)
}

type analyzeRequest struct {
	ExistingSkills []string `json:"existing_skills"`
}

// analyze runs the pipeline for a transition. By default the call is
// synchronous and returns the full AnalysisResult; with ?async=true the run
// is detached and the caller polls /status. A duplicate request while a run
// is in flight gets the current snapshot with in_flight set, never a second
// pipeline. ?force=true clears stored data and re-runs.
func (h *TransitionsHandler) analyze(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.Store.GetTransition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "transition not found")
	}

	var body analyzeRequest
	if err := c.Bind(&body); err != nil && c.Request().ContentLength > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	req := transition.AnalysisRequest{
		TransitionID:   id,
		CurrentRole:    t.CurrentRole,
		TargetRole:     t.TargetRole,
		ExistingSkills: body.ExistingSkills,
		ForceRefresh:   c.QueryParam("force") == "true",
	}

	if c.QueryParam("async") == "true" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout(h.Timeout))
			defer cancel()
			if _, err := h.Orch.Run(ctx, req); err != nil {
				h.Logger.Printf("detached run for transition %d failed: %v", id, err)
			}
		}()
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"transition_id": id,
			"status":        transition.StatusInProgress,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), runTimeout(h.Timeout))
	defer cancel()
	res, err := h.Orch.Run(ctx, req)
	if err != nil {
		return err
	}
	if res.InFlight {
		return c.JSON(http.StatusAccepted, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *TransitionsHandler) status(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if st, ok := h.Orch.Status(id); ok {
		return c.JSON(http.StatusOK, st)
	}
	// No in-process run; fall back to the durable flag.
	t, err := h.Store.GetTransition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "transition not found")
	}
	status := transition.StatusIdle
	if t.IsComplete {
		status = transition.StatusComplete
	}
	return c.JSON(http.StatusOK, transition.RunState{TransitionID: id, Status: status})
}

// result assembles the stored analysis output for a transition.
func (h *TransitionsHandler) result(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.Store.GetTransition(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "transition not found")
	}

	gaps, err := h.Store.SkillGapsByTransition(ctx, id)
	if err != nil {
		return err
	}
	insights, err := h.Store.InsightsByTransition(ctx, id)
	if err != nil {
		return err
	}
	stories, err := h.Store.StoriesByTransition(ctx, id)
	if err != nil {
		return err
	}
	plan, err := h.Store.PlanByTransition(ctx, id)
	if err != nil {
		return err
	}

	summary := transition.InsightSummary{Plan: plan}
	for _, ins := range insights {
		switch ins.Type {
		case transition.InsightObservation:
			summary.KeyObservations = append(summary.KeyObservations, ins.Content)
		case transition.InsightChallenge:
			summary.CommonChallenges = append(summary.CommonChallenges, ins.Content)
		}
	}

	if gaps == nil {
		gaps = []transition.SkillGap{}
	}
	return c.JSON(http.StatusOK, transition.AnalysisResult{
		TransitionID: id,
		SkillGaps:    gaps,
		Insights:     summary,
		ScrapedCount: len(stories),
	})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid transition id")
	}
	return id, nil
}
