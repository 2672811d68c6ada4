package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritest-ai/veritest-be/internal/api/types"
	"github.com/veritest-ai/veritest-be/internal/orchestrator"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// heartbeatInterval keeps intermediaries from timing out an idle stream.
const heartbeatInterval = 15 * time.Second

type runOutcome struct {
	run *veritest.TestRun
	err error
}

// StreamTestRun executes a suite and streams progress over SSE
// @Summary      Stream a test run
// @Description  Execute the supplied test cases and push connected/progress/result/error/complete events over a server-sent event stream
// @Tags         test-runs
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  types.ExecuteRunRequest  true  "Run invocation input"
// @Success      200  {string}  string "SSE event stream"
// @Failure      400  {object}  types.ErrorResponse "Invalid request"
// @Router       /v1/test-runs/stream [post]
func (h *TestRunHandler) StreamTestRun(c *gin.Context) {
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

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Client disconnect cancels the request context; the orchestrator
	// observes it between dispatches and stops handing out work.
	ctx := c.Request.Context()
	input := h.buildInput(ctx, req)

	events := make(chan orchestrator.Event, 64)
	outcome := make(chan runOutcome, 1)

	go func() {
		run, err := h.orch.Run(ctx, input, func(e orchestrator.Event) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		})
		close(events)
		outcome <- runOutcome{run: run, err: err}
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for events != nil {
		select {
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.SSEvent(e.Type, e.Payload)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}

	result := <-outcome
	if result.err != nil {
		var pre *orchestrator.PreconditionError
		payload := orchestrator.ErrorPayload{Message: result.err.Error()}
		if errors.As(result.err, &pre) {
			payload.Message = pre.Message
		}
		c.SSEvent(orchestrator.EventError, payload)
		c.Writer.Flush()
		return
	}

	run := result.run
	if err := h.runRepo.Create(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("failed to persist streamed test run %s: %v", run.ID, err)
	}

	// The terminal event fires even after cancellation so the client's
	// connection closes cleanly.
	c.SSEvent(orchestrator.EventComplete, orchestrator.CompletePayload{
		RunID:   run.ID,
		Status:  run.Status,
		TestRun: run,
	})
	c.Writer.Flush()
}
