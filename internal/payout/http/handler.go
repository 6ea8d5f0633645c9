package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/visitor-parking-backend/internal/payout"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pkg/response"
)

type Runner interface {
	RunDaily(ctx context.Context, buildingID string, day time.Time) (*payout.RunResult, error)
	CalculateCommission(ctx context.Context, payoutID string) (*payout.CommissionResult, error)
	RunAll(ctx context.Context, day time.Time) ([]*payout.RunResult, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Run triggers the payout batch for one day, for one building or all of
// them. Partial failures are reported next to the results.
func (h *Handler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	resp := RunResponse{Date: req.Date, Results: []RunResultResponse{}}

	if req.BuildingID != "" {
		res, err := h.runner.RunDaily(ctx, req.BuildingID, day)
		if err != nil {
			response.Error(c, err)
			return
		}
		if res.Payout != nil {
			cr, err := h.runner.CalculateCommission(ctx, res.Payout.ID)
			if err != nil {
				response.Error(c, err)
				return
			}
			res.Commission = cr.Commission
		}
		resp.Results = append(resp.Results, NewRunResultResponse(res))
		c.JSON(http.StatusOK, resp)
		return
	}

	results, err := h.runner.RunAll(ctx, day)
	for _, r := range results {
		resp.Results = append(resp.Results, NewRunResultResponse(r))
	}
	if err != nil {
		_ = c.Error(err)
		resp.Errors = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
