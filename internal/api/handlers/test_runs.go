package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/veritest-ai/veritest-be/internal/api/types"
	"github.com/veritest-ai/veritest-be/internal/orchestrator"
	"github.com/veritest-ai/veritest-be/internal/storage"
)

type TestRunHandler struct {
	orch        *orchestrator.Orchestrator
	runRepo     storage.RunRepository
	redisClient *redis.Client
}

func NewTestRunHandler(orch *orchestrator.Orchestrator, runRepo storage.RunRepository, redisClient *redis.Client) *TestRunHandler {
	return &TestRunHandler{
		orch:        orch,
		runRepo:     runRepo,
		redisClient: redisClient,
	}
}

// ExecuteTestRun executes a suite in batch mode
// @Summary      Execute a test run
// @Description  Execute the supplied test cases against a prompt or endpoint target and return the completed run
// @Tags         test-runs
// @Accept       json
// @Produce      json
// @Param        request  body      types.ExecuteRunRequest  true  "Run invocation input"
// @Success      200      {object}  veritest.TestRun "Completed test run"
// @Failure      400      {object}  types.ErrorResponse "Invalid request or precondition failure"
// @Failure      500      {object}  types.ErrorResponse "Internal server error"
// @Router       /v1/test-runs [post]
func (h *TestRunHandler) ExecuteTestRun(c *gin.Context) {
	var req types.ExecuteRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid test run request",
			},
		})
		return
	}

	input := h.buildInput(c.Request.Context(), req)

	run, err := h.orch.Run(c.Request.Context(), input, nil)
	if err != nil {
		var pre *orchestrator.PreconditionError
		if errors.As(err, &pre) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    pre.Code,
					"message": pre.Message,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to execute test run",
			},
		})
		return
	}

	// Persist best effort; the run is still returned if storage is down.
	if err := h.runRepo.Create(context.WithoutCancel(c.Request.Context()), run); err != nil {
		log.Printf("failed to persist test run %s: %v", run.ID, err)
	}

	c.JSON(http.StatusOK, run)
}

// ListTestRuns returns paginated run history
// @Summary      List test runs
// @Description  Get a paginated list of persisted test runs, newest first
// @Tags         test-runs
// @Accept       json
// @Produce      json
// @Param        limit   query     int  false  "Page size (default 50)"
// @Param        offset  query     int  false  "Offset (default 0)"
// @Success      200     {object}  map[string]interface{} "List of test runs"
// @Failure      500     {object}  types.ErrorResponse "Internal server error"
// @Router       /v1/test-runs [get]
func (h *TestRunHandler) ListTestRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	runs, err := h.runRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to fetch test runs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"test_runs": runs,
		"count":     len(runs),
	})
}

// GetTestRun returns a single persisted run
// @Summary      Get a test run
// @Description  Get a specific test run by ID
// @Tags         test-runs
// @Accept       json
// @Produce      json
// @Param        runID  path      string  true  "Test Run ID"
// @Success      200    {object}  veritest.TestRun "Test run details"
// @Failure      404    {object}  types.ErrorResponse "Test run not found"
// @Failure      500    {object}  types.ErrorResponse "Internal server error"
// @Router       /v1/test-runs/{runID} [get]
func (h *TestRunHandler) GetTestRun(c *gin.Context) {
	runID := c.Param("runID")

	run, err := h.runRepo.Get(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Test run not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to fetch test run",
			},
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// buildInput maps the request to the orchestrator input and resolves the
// effective concurrency ceiling for the requesting organization.
func (h *TestRunHandler) buildInput(ctx context.Context, req types.ExecuteRunRequest) orchestrator.Input {
	return orchestrator.Input{
		TargetType:     req.TargetType,
		Prompt:         req.Prompt,
		Endpoint:       req.Endpoint,
		TestCases:      req.TestCases,
		Rules:          req.Rules,
		Judge:          req.Judge,
		Credentials:    req.Credentials,
		ModelOverride:  req.Options.ModelOverride,
		Note:           req.Options.Note,
		Iterations:     req.Options.Iterations,
		Tags:           req.Options.Tags,
		TestCaseIDs:    req.Options.TestCaseIDs,
		Parallel:       req.Options.Parallel,
		MaxConcurrency: h.maxConcurrency(ctx, req.Options),
	}
}

// maxConcurrency prefers, in order: the request's explicit value, the
// organization's configured ceiling cached in Redis, then the engine
// default. Redis errors fall back to the default (fail open).
func (h *TestRunHandler) maxConcurrency(ctx context.Context, opts types.RunOptions) int {
	if opts.MaxConcurrency > 0 {
		return opts.MaxConcurrency
	}
	if h.redisClient != nil && opts.OrganizationID != "" {
		value, err := h.redisClient.Get(ctx, "engine:maxconc:"+opts.OrganizationID).Result()
		if err == nil {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n
			}
		}
	}
	return orchestrator.DefaultMaxConcurrency
}
