package controller

import (
	request "carechat/internal/pkg/request/application/domain"

	"github.com/gin-gonic/gin"
)

// toRequestJSON serializes a chat request the same way for create, respond
// and list responses.
func toRequestJSON(r request.ChatRequest) gin.H {
	invitees := make([]gin.H, 0, len(r.Invitees))
	for _, inv := range r.Invitees {
		entry := gin.H{
			"participant": gin.H{"id": inv.Participant.ID, "kind": string(inv.Participant.Kind)},
			"status":      string(inv.Status),
		}
		if inv.SimilarityScore != nil {
			entry["similarity_score"] = *inv.SimilarityScore
		}
		if inv.RejectionReason != nil {
			entry["rejection_reason"] = *inv.RejectionReason
		}
		if inv.RespondedAt != nil {
			entry["responded_at"] = *inv.RespondedAt
		}
		invitees = append(invitees, entry)
	}

	out := gin.H{
		"id":         r.ID,
		"owner":      gin.H{"id": r.Owner.ID, "kind": string(r.Owner.Kind)},
		"chat_type":  string(r.ChatType),
		"invitees":   invitees,
		"created_at": r.CreatedAt,
	}
	if r.GroupName != "" {
		out["group_name"] = r.GroupName
	}
	if r.Reason != "" {
		out["reason"] = r.Reason
	}
	if r.ResultingChatID != "" {
		out["resulting_chat_id"] = r.ResultingChatID
	}
	return out
}
