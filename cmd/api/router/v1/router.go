package v1

import (
	qport "carechat/internal/infrastructure/queue/port"
	"carechat/internal/infrastructure/realtime"
	"carechat/internal/pkg/call"
	chatusecase "carechat/internal/pkg/chat/application/usecase"
	chatadapter "carechat/internal/pkg/chat/persistence/repository/adapter"
	chathttp "carechat/internal/pkg/chat/presentation/http"
	"carechat/internal/pkg/entitlement"
	idport "carechat/internal/pkg/identity/port"
	notifyport "carechat/internal/pkg/notify/port"
	requestadapter "carechat/internal/pkg/request/persistence/repository/adapter"
	requesthttp "carechat/internal/pkg/request/presentation/http"
	"carechat/internal/pkg/scoring"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps holds the shared collaborators mounted into the v1 API.
type Deps struct {
	Pool      *pgxpool.Pool
	Queue     qport.Client
	Directory idport.Directory
	Notifier  notifyport.Notifier
	Scorer    scoring.Scorer
	Gate      entitlement.Gate
	Hub       *realtime.Hub
	Calls     *call.Coordinator
}

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, deps Deps) {
	v1 := r.Group("/api/v1")

	chatRepo := chatadapter.NewPgChatRepository(deps.Pool)
	requestRepo := requestadapter.NewPgRequestRepository(deps.Pool)

	chathttp.RegisterRoutes(v1, chathttp.Deps{
		Repo:      chatRepo,
		Directory: deps.Directory,
		Notifier:  deps.Notifier,
		Queue:     deps.Queue,
		Hub:       deps.Hub,
		Calls:     deps.Calls,
	})

	requesthttp.RegisterRoutes(v1, requesthttp.Deps{
		Repo:           requestRepo,
		Directory:      deps.Directory,
		Scorer:         deps.Scorer,
		Gate:           deps.Gate,
		Notifier:       deps.Notifier,
		Materialize:    chatusecase.NewMaterializeChatUseCase(chatRepo, deps.Directory),
		AddParticipant: chatusecase.NewAddParticipantUseCase(chatRepo, deps.Directory),
	})
}
