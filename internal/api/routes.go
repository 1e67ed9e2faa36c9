package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxlead/server/internal/auth"
	"github.com/voxlead/server/internal/websocket"
	"github.com/voxlead/server/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, chat *usecase.ChatService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voxlead-server",
		})
	})

	api := e.Group("/api")

	api.POST("/chat/start", func(c echo.Context) error {
		return chatStart(c, chat, logger)
	})
	api.POST("/chat/message", func(c echo.Context) error {
		return chatMessage(c, chat, logger)
	})
	api.GET("/leads", func(c echo.Context) error {
		return listLeads(c, chat, logger)
	})

	// Voice bridge for widgets, authenticated with the token minted at
	// chat start
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

func chatStart(c echo.Context, chat *usecase.ChatService, logger *zap.Logger) error {
	session, reply, err := chat.Start(c.Request().Context())
	if err != nil {
		logger.Error("Failed to start chat session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "start_failed",
			Message: "Failed to start a conversation",
		})
	}

	token, err := auth.GenerateWidgetToken(session.ID)
	if err != nil {
		logger.Error("Failed to generate widget token",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	return c.JSON(http.StatusOK, StartResponse{
		SessionID:        session.ID,
		Message:          reply.Message,
		ShouldAutoListen: reply.ShouldAutoListen,
		Agent:            session.Voice.Name,
		Token:            token,
	})
}

func chatMessage(c echo.Context, chat *usecase.ChatService, logger *zap.Logger) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind message request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.SessionID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Session id and message are required",
		})
	}

	reply, err := chat.HandleMessage(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionExpired) {
			return c.JSON(http.StatusGone, ErrorResponse{
				Error:   "session_expired",
				Message: "This conversation has expired. Please start a new one.",
			})
		}
		logger.Warn("Failed to handle message",
			zap.String("sessionID", req.SessionID),
			zap.Error(err))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Unknown session",
		})
	}

	return c.JSON(http.StatusOK, MessageResponse{
		AgentMessage:     reply.Message,
		IsComplete:       reply.IsComplete,
		ValidationError:  reply.ValidationError,
		ShouldAutoListen: reply.ShouldAutoListen,
	})
}

func listLeads(c echo.Context, chat *usecase.ChatService, logger *zap.Logger) error {
	claims, err := bearerClaims(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "A valid admin token is required",
		})
	}

	if claims.Role != auth.RoleAdmin {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only admin tokens may list leads",
		})
	}

	leads, err := chat.Leads(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list leads", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list leads",
		})
	}

	return c.JSON(http.StatusOK, leads)
}

// websocketWithAuth handles voice bridge connections with JWT
// authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	// The browser WebSocket API cannot set headers, so the token also
	// travels as a query parameter.
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "A session token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
	}

	if claims.Role != auth.RoleWidget || claims.SessionID == "" {
		logger.Warn("WebSocket connection rejected: invalid claims",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only widget session tokens may open the voice bridge",
		})
	}

	return websocket.HandleWebSocketWithAuth(hub, c, claims.SessionID, logger)
}

func bearerClaims(c echo.Context) (*auth.JWTClaims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return auth.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
}
