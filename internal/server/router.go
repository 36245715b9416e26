package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mckinnon/PeerTube/internal/activity"
	"github.com/mckinnon/PeerTube/internal/redundancy"
	"github.com/mckinnon/PeerTube/internal/replica"
	"go.uber.org/zap"
)

const adminSubject = "federation-admin"

var (
	errMissingUpdateService = errors.New("update service dependency required")
	errMissingSignerStore   = errors.New("signer store dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingAdminSecret   = errors.New("admin secret required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// UpdateHandler processes an inbound Update activity.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, a activity.Activity, signer *replica.Actor) error
}

// SignerStore resolves the declared signer of an inbound activity.
type SignerStore interface {
	ResolveSigner(ctx context.Context, url string) (*replica.Actor, error)
}

// TokenManager issues and validates admin JWTs.
type TokenManager interface {
	IssueAdminToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// VideoLister exposes the stored video replicas for the admin API.
type VideoLister interface {
	List(ctx context.Context) ([]replica.Video, error)
}

// RedundancyAdmin exposes the acceptance list for the admin API.
type RedundancyAdmin interface {
	Accept(ctx context.Context, actorURL string) error
	List(ctx context.Context) ([]redundancy.AcceptedRedundancy, error)
}

// Dependencies wires the HTTP surface to the federation core.
type Dependencies struct {
	UpdateService UpdateHandler
	Signers       SignerStore
	TokenManager  TokenManager
	Videos        VideoLister
	Redundancy    RedundancyAdmin
	AdminSecret   string
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router for the inbox and admin API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.UpdateService == nil {
		return nil, errMissingUpdateService
	}
	if deps.Signers == nil {
		return nil, errMissingSignerStore
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if strings.TrimSpace(deps.AdminSecret) == "" {
		return nil, errMissingAdminSecret
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		updates:     deps.UpdateService,
		signers:     deps.Signers,
		tokens:      deps.TokenManager,
		videos:      deps.Videos,
		redundancy:  deps.Redundancy,
		adminSecret: deps.AdminSecret,
		logger:      logger,
	}

	router.POST("/inbox", handler.handleInbox)
	router.POST("/admin/token", handler.handleAdminToken)

	protected := router.Group("/api/v1")
	protected.Use(handler.authorizeRequest)
	protected.GET("/videos", handler.handleListVideos)
	protected.GET("/redundancies", handler.handleListRedundancies)
	protected.POST("/redundancies/accept", handler.handleAcceptRedundancy)

	return router, nil
}

type httpHandler struct {
	updates     UpdateHandler
	signers     SignerStore
	tokens      TokenManager
	videos      VideoLister
	redundancy  RedundancyAdmin
	adminSecret string
	logger      *zap.Logger
}

// handleInbox accepts a federation activity. The endpoint is fire-and-forget
// for peers: every accepted payload is acknowledged with 204 regardless of
// the reconciliation outcome, which surfaces only through logs.
func (h *httpHandler) handleInbox(c *gin.Context) {
	var incoming activity.Activity
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_activity"})
		return
	}

	if incoming.Type != "Update" {
		h.logger.Debug("ignoring non-update activity",
			zap.String("activity_id", incoming.ID),
			zap.String("activity_type", incoming.Type))
		c.Status(http.StatusNoContent)
		return
	}

	signer, err := h.signers.ResolveSigner(c.Request.Context(), incoming.Actor)
	if err != nil && !errors.Is(err, replica.ErrActorNotFound) {
		h.logger.Error("signer resolution failed", zap.Error(err), zap.String("signer_url", incoming.Actor))
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.updates.HandleUpdate(c.Request.Context(), incoming, signer); err != nil {
		h.logger.Error("update reconciliation failed",
			zap.String("activity_id", incoming.ID),
			zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

type adminTokenRequest struct {
	Secret string `json:"secret"`
}

type adminTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleAdminToken(c *gin.Context) {
	var request adminTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Secret) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Secret != h.adminSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueAdminToken(c.Request.Context(), adminSubject)
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, adminTokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errInvalidAuthorization
	}
	return strings.TrimSpace(parts[1]), nil
}

func (h *httpHandler) handleListVideos(c *gin.Context) {
	if h.videos == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_available"})
		return
	}
	videos, err := h.videos.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list videos", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *httpHandler) handleListRedundancies(c *gin.Context) {
	if h.redundancy == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_available"})
		return
	}
	records, err := h.redundancy.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list redundancies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redundancies": records})
}

type acceptRedundancyRequest struct {
	ActorURL string `json:"actor_url"`
}

func (h *httpHandler) handleAcceptRedundancy(c *gin.Context) {
	if h.redundancy == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_available"})
		return
	}
	var request acceptRedundancyRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ActorURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.redundancy.Accept(c.Request.Context(), request.ActorURL); err != nil {
		h.logger.Error("failed to accept redundancy actor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "accept_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
