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

// ListChatsController handles the per-participant chat listing endpoint
// (one controller per endpoint)
type ListChatsController struct {
	UC *usecase.ListChatsUseCase
}

func NewListChatsController(uc *usecase.ListChatsUseCase) *ListChatsController {
	return &ListChatsController{UC: uc}
}

func (h *ListChatsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		participant, err := identity.NewRef(c.Query("participant_id"), identity.Kind(c.Query("participant_kind")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id and a valid participant_kind are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		chats, err := h.UC.Execute(ctx, usecase.ListChatsInput{Participant: participant})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(chats))
		for _, ch := range chats {
			out = append(out, toChatJSON(ch))
		}
		c.JSON(http.StatusOK, gin.H{
			"chats": out,
			"count": len(out),
		})
	}
}
