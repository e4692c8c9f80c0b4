// Package server exposes the conversation workflow over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// ChatService processes one user message and returns the assistant reply.
type ChatService interface {
	Run(ctx context.Context, userID, sessionID, message string) (string, error)
}

// Server wires the chat service into a gin router.
type Server struct {
	service  ChatService
	observer observability.Provider
}

// New creates a Server around the given chat service. The observer may be
// nil.
func New(service ChatService, observer observability.Provider) *Server {
	return &Server{service: service, observer: observer}
}

// chatRequest is the inbound message body. A missing session_id is minted
// server-side so the client can thread the conversation.
type chatRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Router builds the HTTP routes. allowedOrigins configures CORS; an empty
// list allows all origins. debug switches gin out of release mode.
func (server *Server) Router(allowedOrigins []string, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/", server.handleRoot)
	router.GET("/health", server.handleHealth)

	api := router.Group("/api/v1")
	api.POST("/chat", server.handleChat)

	return router
}

func (server *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Crop/Farmer Chatbot API.",
	})
}

func (server *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (server *Server) handleChat(c *gin.Context) {
	var request chatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return
	}

	sessionID := request.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	response, err := server.service.Run(c.Request.Context(), request.UserID, sessionID, request.Message)
	if err != nil {
		if server.observer != nil {
			server.observer.Error(c.Request.Context(), "chat request failed",
				observability.String(observability.AttrChatUserID, request.UserID),
				observability.String(observability.AttrChatSessionID, sessionID),
				observability.Error(err),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Response: response, SessionID: sessionID})
}
