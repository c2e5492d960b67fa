package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
	"carechat/internal/pkg/request/application/usecase"
	repository "carechat/internal/pkg/request/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// RespondRequestController handles the accept/reject endpoint (one controller per endpoint)
type RespondRequestController struct {
	UC *usecase.RespondRequestUseCase
}

func NewRespondRequestController(uc *usecase.RespondRequestUseCase) *RespondRequestController {
	return &RespondRequestController{UC: uc}
}

type respondRequestRequest struct {
	Participant     participantRef `json:"participant" binding:"required"`
	Decision        string         `json:"decision" binding:"required"`
	RejectionReason *string        `json:"rejection_reason"`
}

func (h *RespondRequestController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("requestId")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "requestId is required"})
			return
		}

		var req respondRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		participant, err := identity.NewRef(req.Participant.ID, identity.Kind(req.Participant.Kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.RespondRequestInput{
			RequestID:       requestID,
			Participant:     participant,
			Decision:        request.Decision(req.Decision),
			RejectionReason: req.RejectionReason,
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		updated, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, repository.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, request.ErrNotInvitee):
				status = http.StatusForbidden
			case errors.Is(err, request.ErrAlreadyResponded):
				status = http.StatusConflict
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, toRequestJSON(*updated))
	}
}
