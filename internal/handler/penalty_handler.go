package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autoescuela/scheduling-api/internal/service"
	"github.com/autoescuela/scheduling-api/pkg/response"
)

// PenaltyHandler exposes penalty history and settlement endpoints.
type PenaltyHandler struct {
	service *service.PenaltyService
}

// NewPenaltyHandler constructs the handler.
func NewPenaltyHandler(svc *service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{service: svc}
}

// ListByUser godoc
// @Summary List a user's penalties
// @Tags Penalties
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/penalties [get]
func (h *PenaltyHandler) ListByUser(c *gin.Context) {
	penalties, err := h.service.ListPenalties(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, penalties, nil)
}

// Settle godoc
// @Summary Mark a penalty as paid
// @Tags Penalties
// @Produce json
// @Param id path string true "Penalty ID"
// @Success 204
// @Router /penalties/{id}/settle [post]
func (h *PenaltyHandler) Settle(c *gin.Context) {
	if err := h.service.SettlePenalty(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
