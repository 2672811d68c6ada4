package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veritest-ai/veritest-be/internal/api/types"
	"github.com/veritest-ai/veritest-be/internal/comparison"
	"github.com/veritest-ai/veritest-be/internal/storage"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

type ComparisonHandler struct {
	runRepo storage.RunRepository
}

func NewComparisonHandler(runRepo storage.RunRepository) *ComparisonHandler {
	return &ComparisonHandler{runRepo: runRepo}
}

// CompareRuns diffs two test runs
// @Summary      Compare two test runs
// @Description  Classify every test case between a baseline and a compare run and aggregate the deltas. Runs are referenced by stored ID or supplied inline.
// @Tags         comparisons
// @Accept       json
// @Produce      json
// @Param        request  body      types.CompareRequest  true  "Run references or inline runs"
// @Success      200      {object}  veritest.Comparison "Comparison document"
// @Failure      400      {object}  types.ErrorResponse "Invalid request"
// @Failure      404      {object}  types.ErrorResponse "Referenced run not found"
// @Failure      500      {object}  types.ErrorResponse "Internal server error"
// @Router       /v1/comparisons [post]
func (h *ComparisonHandler) CompareRuns(c *gin.Context) {
	var req types.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid comparison request",
			},
		})
		return
	}

	baseline, ok := h.resolveRun(c, req.BaselineRun, req.BaselineRunID)
	if !ok {
		return
	}
	compare, ok := h.resolveRun(c, req.CompareRun, req.CompareRunID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, comparison.Compare(baseline, compare))
}

// resolveRun prefers the inline run; otherwise it loads the referenced run
// from storage. On failure it writes the error response and returns false.
func (h *ComparisonHandler) resolveRun(c *gin.Context, inline *veritest.TestRun, runID string) (*veritest.TestRun, bool) {
	if inline != nil {
		return inline, true
	}
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Each side of a comparison needs a run ID or an inline run",
			},
		})
		return nil, false
	}

	run, err := h.runRepo.Get(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Test run " + runID + " not found",
				},
			})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to fetch test run",
			},
		})
		return nil, false
	}
	return run, true
}
