package handler

import (
	"reefchat/internal/chat"
	"reefchat/internal/configs"
	"reefchat/internal/transport/ws"
)

type AppDeps struct {
	ChatServer *chat.Server
	Transport  *ws.Server
	Config     *configs.AppConfig
}
