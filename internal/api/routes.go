package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nadasuara/server/domain/repositories"
	"github.com/nadasuara/server/internal/audio"
	"github.com/nadasuara/server/internal/auth"
	"github.com/nadasuara/server/internal/websocket"
)

// maxUploadSize bounds single-shot transcription uploads.
const maxUploadSize = 10 << 20 // 10MB, about 5 minutes of PCM16 mono

// Server bundles the dependencies behind the HTTP surface.
type Server struct {
	hub        *websocket.Hub
	deviceRepo repositories.DeviceRepository
	archive    repositories.TranscriptArchive
	recognizer repositories.Recognizer
	authn      *auth.Authenticator
	sampleRate int
	logger     *zap.Logger
}

// NewServer creates the API server.
func NewServer(
	hub *websocket.Hub,
	deviceRepo repositories.DeviceRepository,
	archive repositories.TranscriptArchive,
	recognizer repositories.Recognizer,
	authn *auth.Authenticator,
	sampleRate int,
	logger *zap.Logger,
) *Server {
	if sampleRate <= 0 {
		sampleRate = audio.SampleRate
	}
	return &Server{
		hub:        hub,
		deviceRepo: deviceRepo,
		archive:    archive,
		recognizer: recognizer,
		authn:      authn,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// InitRoutes initializes all API routes
func (s *Server) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "nadasuara-server",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/device/auth", s.deviceAuth)
	v1.GET("/transcripts", s.listTranscripts)
	v1.POST("/transcribe", s.transcribe)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", s.websocketWithAuth)
}

func (s *Server) deviceAuth(c echo.Context) error {
	var req DeviceAuthRequest

	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind device auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.SerialNumber == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Serial number and secret key are required",
		})
	}

	device, err := s.deviceRepo.ValidateDevice(req.SerialNumber, req.SecretKey)
	if err != nil {
		s.logger.Warn("Device authentication failed",
			zap.String("serial_number", req.SerialNumber),
			zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid device credentials",
		})
	}

	token, err := s.authn.GenerateDeviceToken(device.ID)
	if err != nil {
		s.logger.Error("Failed to generate device token",
			zap.String("device_id", device.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	s.logger.Info("Device authenticated successfully",
		zap.String("device_id", device.ID),
		zap.String("serial_number", device.SerialNumber))

	return c.JSON(http.StatusOK, DeviceAuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.authn.TTL()),
		DeviceID:  device.ID,
	})
}

// listTranscripts returns the calling device's archived transcripts,
// newest first.
func (s *Server) listTranscripts(c echo.Context) error {
	claims, err := s.authenticate(c)
	if claims == nil {
		return err
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	transcripts, err := s.archive.ListByDevice(c.Request().Context(), claims.DeviceID, limit)
	if err != nil {
		s.logger.Error("Failed to list transcripts",
			zap.String("device_id", claims.DeviceID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load transcripts",
		})
	}

	return c.JSON(http.StatusOK, TranscriptListResponse{
		DeviceID:    claims.DeviceID,
		Transcripts: transcripts,
	})
}

// transcribe runs one recognition pass over a complete uploaded clip.
// The streaming path is unaffected; this serves batch callers.
func (s *Server) transcribe(c echo.Context) error {
	if claims, err := s.authenticate(c); claims == nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadSize+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read request body",
		})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Audio payload is required",
		})
	}
	if len(body) > maxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: "Audio payload exceeds the upload limit",
		})
	}

	var samples []int16
	if audio.IsWAV(body) {
		samples, err = audio.DecodeWAV(body, s.sampleRate)
	} else {
		samples, err = audio.DecodePCM16(body)
	}
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "format_error",
			Message: err.Error(),
		})
	}

	language := c.QueryParam("language")

	ctx := c.Request().Context()
	text, err := s.recognizer.Transcribe(ctx, samples, language)
	if err != nil {
		s.logger.Error("Single-shot transcription failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "recognizer_error",
			Message: "Transcription failed",
		})
	}

	return c.JSON(http.StatusOK, TranscribeResponse{
		Text:     strings.TrimSpace(text),
		Duration: audio.Duration(len(samples), s.sampleRate).Seconds(),
		Language: language,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (s *Server) websocketWithAuth(c echo.Context) error {
	claims, err := s.authenticate(c)
	if claims == nil {
		return err
	}

	s.logger.Info("WebSocket connection authenticated",
		zap.String("device_id", claims.DeviceID))

	return websocket.HandleWebSocket(s.hub, c, claims.DeviceID, s.logger)
}

// authenticate extracts and validates the device token from the
// Authorization header or, for browser WebSocket clients that cannot set
// headers, the token query parameter.
func (s *Server) authenticate(c echo.Context) (*auth.JWTClaims, error) {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		s.logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
		return nil, c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := s.authn.ValidateToken(token)
	if err != nil {
		s.logger.Warn("Request rejected: invalid token", zap.Error(err))
		return nil, c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != "device" {
		return nil, c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only device tokens are allowed",
		})
	}
	if claims.DeviceID == "" {
		return nil, c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Device ID not found in token",
		})
	}

	return claims, nil
}
