package http

import (
	chatusecase "carechat/internal/pkg/chat/application/usecase"
	"carechat/internal/pkg/entitlement"
	idport "carechat/internal/pkg/identity/port"
	notifyport "carechat/internal/pkg/notify/port"
	"carechat/internal/pkg/request/application/usecase"
	repository "carechat/internal/pkg/request/persistence/repository/port"
	"carechat/internal/pkg/request/presentation/controller"
	"carechat/internal/pkg/scoring"

	"github.com/gin-gonic/gin"
)

// Deps bundles what the request endpoints need. Responding crosses into the
// chat domain (a quorum acceptance materializes a chat), so the chat use
// cases are injected rather than built here.
type Deps struct {
	Repo           repository.RequestRepository
	Directory      idport.Directory
	Scorer         scoring.Scorer
	Gate           entitlement.Gate
	Notifier       notifyport.Notifier
	Materialize    *chatusecase.MaterializeChatUseCase
	AddParticipant *chatusecase.AddParticipantUseCase
}

// RegisterRoutes registers request-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Deps) {
	createUC := usecase.NewCreateRequestUseCase(deps.Repo, deps.Directory, deps.Scorer, deps.Gate, deps.Notifier)
	respondUC := usecase.NewRespondRequestUseCase(deps.Repo, deps.Materialize, deps.AddParticipant, deps.Notifier)
	listUC := usecase.NewListRequestsUseCase(deps.Repo)

	createCtl := controller.NewCreateRequestController(createUC)
	respondCtl := controller.NewRespondRequestController(respondUC)
	sentCtl := controller.NewListRequestsController(listUC, usecase.BoxSent)
	receivedCtl := controller.NewListRequestsController(listUC, usecase.BoxReceived)

	// POST /api/v1/request -> propose a conversation
	g.POST("/request", createCtl.Handle())

	// POST /api/v1/request/:requestId/response -> accept or reject an invitation
	g.POST("/request/:requestId/response", respondCtl.Handle())

	// GET /api/v1/request/sent?participant_id=&participant_kind= -> requests the caller proposed
	g.GET("/request/sent", sentCtl.Handle())

	// GET /api/v1/request/received?participant_id=&participant_kind= -> invitations addressed to the caller
	g.GET("/request/received", receivedCtl.Handle())
}
