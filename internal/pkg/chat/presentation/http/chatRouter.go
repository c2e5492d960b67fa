package http

import (
	qport "carechat/internal/infrastructure/queue/port"
	"carechat/internal/infrastructure/realtime"
	"carechat/internal/pkg/call"
	"carechat/internal/pkg/chat/application/usecase"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	"carechat/internal/pkg/chat/presentation/controller"
	idport "carechat/internal/pkg/identity/port"
	notifyport "carechat/internal/pkg/notify/port"

	"github.com/gin-gonic/gin"
)

// Deps bundles what the chat endpoints need.
type Deps struct {
	Repo      repository.ChatRepository
	Directory idport.Directory
	Notifier  notifyport.Notifier
	Queue     qport.Client
	Hub       *realtime.Hub
	Calls     *call.Coordinator
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Deps) {
	directUC := usecase.NewEstablishDirectChatUseCase(deps.Repo, deps.Directory)
	getMsgUC := usecase.NewGetMessageUseCase(deps.Repo)
	listUC := usecase.NewListChatsUseCase(deps.Repo)
	joinUC := usecase.NewJoinChatUseCase(deps.Repo)
	sendUC := usecase.NewSendMessageUseCase(deps.Repo).
		WithBroadcaster(controller.NewMessageFanout(deps.Hub)).
		WithNotifier(deps.Notifier)

	directCtl := controller.NewEstablishDirectChatController(directUC)
	sendMsgCtl := controller.NewSendMessageController(deps.Queue)
	getMsgCtl := controller.NewGetMessageController(getMsgUC)
	listCtl := controller.NewListChatsController(listUC)
	socketCtl := controller.NewChatSocketController(deps.Hub, deps.Calls, deps.Directory, sendUC, joinUC)

	// POST /api/v1/chat/direct -> find or create the private chat for a pair
	g.POST("/chat/direct", directCtl.Handle())

	// POST /api/v1/chat/:chatId -> send a message into a chat (queued)
	g.POST("/chat/:chatId", sendMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/messages -> fetch messages by chat id
	g.GET("/chat/:chatId/messages", getMsgCtl.Handle())

	// GET /api/v1/chat -> list a participant's chats
	g.GET("/chat", listCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat and calls
	g.GET("/chat/ws", socketCtl.Handle())
}
