package controller

import (
	chat "carechat/internal/pkg/chat/application/domain"

	"github.com/gin-gonic/gin"
)

// participantRef is the DTO for a polymorphic participant reference.
type participantRef struct {
	ID   string `json:"id" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

func toChatJSON(c chat.Chat) gin.H {
	participants := make([]gin.H, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, gin.H{"id": p.ID, "kind": string(p.Kind)})
	}

	out := gin.H{
		"id":           c.ID,
		"participants": participants,
		"is_group":     c.IsGroup,
		"created_at":   c.CreatedAt,
	}
	if c.IsGroup {
		out["group_name"] = c.GroupName
	}
	if c.Owner != nil {
		out["owner"] = gin.H{"id": c.Owner.ID, "kind": string(c.Owner.Kind)}
	}
	if c.SourceRequestID != "" {
		out["source_request_id"] = c.SourceRequestID
	}
	if c.LatestMessageID != "" {
		out["latest_message_id"] = c.LatestMessageID
	}
	return out
}
