package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carechat/internal/pkg/chat/application/usecase"
	identity "carechat/internal/pkg/identity/domain"

	"github.com/gin-gonic/gin"
)

// EstablishDirectChatController handles the direct-chat endpoint
// One controller per endpoint

type EstablishDirectChatController struct {
	UC *usecase.EstablishDirectChatUseCase
}

func NewEstablishDirectChatController(uc *usecase.EstablishDirectChatUseCase) *EstablishDirectChatController {
	return &EstablishDirectChatController{UC: uc}
}

type establishDirectChatRequest struct {
	A participantRef `json:"a" binding:"required"`
	B participantRef `json:"b" binding:"required"`
}

func (h *EstablishDirectChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req establishDirectChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		a, err := identity.NewRef(req.A.ID, identity.Kind(req.A.Kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b, err := identity.NewRef(req.B.ID, identity.Kind(req.B.Kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		chat, err := h.UC.Execute(ctx, usecase.EstablishDirectChatInput{A: a, B: b})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, toChatJSON(*chat))
	}
}
