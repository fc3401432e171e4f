package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/willjksn/echoflux/internal/api/dto"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/service"
	"github.com/willjksn/echoflux/internal/types"
)

type BillingHandler struct {
	planChanges service.PlanChangeService
}

func NewBillingHandler(planChanges service.PlanChangeService) *BillingHandler {
	return &BillingHandler{planChanges: planChanges}
}

// ChangePlan godoc
// @Summary Change subscription plan
// @Description Cancel to Free, schedule a downgrade, or apply a prorated upgrade
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.PlanChangeRequest true "Plan change request"
// @Success 200 {object} dto.PlanChangeResponse
// @Router /v1/billing/plan-change [post]
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	var req dto.PlanChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	userID := types.GetUserID(c.Request.Context())
	if userID == "" {
		c.Error(ierr.NewError("no authenticated user").
			WithHint("Authentication is required").
			Mark(ierr.ErrUnauthenticated))
		return
	}

	resp, err := h.planChanges.ChangePlan(c.Request.Context(), userID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
