package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	identity "carechat/internal/pkg/identity/domain"
	"carechat/internal/pkg/request/application/usecase"

	"github.com/gin-gonic/gin"
)

// ListRequestsController handles the sent/received request listing endpoint
// (one controller per endpoint)
type ListRequestsController struct {
	UC  *usecase.ListRequestsUseCase
	Box usecase.RequestBox
}

func NewListRequestsController(uc *usecase.ListRequestsUseCase, box usecase.RequestBox) *ListRequestsController {
	return &ListRequestsController{UC: uc, Box: box}
}

func (h *ListRequestsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		participant, err := identity.NewRef(c.Query("participant_id"), identity.Kind(c.Query("participant_kind")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id and a valid participant_kind are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		reqs, err := h.UC.Execute(ctx, usecase.ListRequestsInput{Participant: participant, Box: h.Box})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, toRequestJSON(r))
		}
		c.JSON(http.StatusOK, gin.H{
			"requests": out,
			"count":    len(out),
		})
	}
}
