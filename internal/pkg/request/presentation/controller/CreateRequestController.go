package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
	"carechat/internal/pkg/request/application/usecase"

	"github.com/gin-gonic/gin"
)

// CreateRequestController handles the request creation endpoint
// One controller per endpoint

type CreateRequestController struct {
	UC *usecase.CreateRequestUseCase
}

func NewCreateRequestController(uc *usecase.CreateRequestUseCase) *CreateRequestController {
	return &CreateRequestController{UC: uc}
}

type participantRef struct {
	ID   string `json:"id" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

type createRequestRequest struct {
	Owner     participantRef   `json:"owner" binding:"required"`
	ChatType  string           `json:"chat_type" binding:"required"`
	Invitees  []participantRef `json:"invitees" binding:"required"`
	GroupName string           `json:"group_name"`
	Reason    string           `json:"reason"`
}

func (h *CreateRequestController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		owner, err := identity.NewRef(req.Owner.ID, identity.Kind(req.Owner.Kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invitees := make([]identity.Ref, 0, len(req.Invitees))
		for _, p := range req.Invitees {
			ref, err := identity.NewRef(p.ID, identity.Kind(p.Kind))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			invitees = append(invitees, ref)
		}

		in := usecase.CreateRequestInput{
			Owner:     owner,
			ChatType:  request.ChatType(req.ChatType),
			Invitees:  invitees,
			GroupName: req.GroupName,
			Reason:    req.Reason,
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		created, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			case errors.Is(err, usecase.ErrDuplicatePendingRequest),
				errors.Is(err, usecase.ErrDuplicateGroupName):
				status = http.StatusConflict
			case errors.Is(err, usecase.ErrNotEntitled):
				status = http.StatusForbidden
			case errors.Is(err, usecase.ErrInvalidInvitee):
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, toRequestJSON(*created))
	}
}
