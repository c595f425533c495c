package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/velstore/storefront-edge/internal/httputil"
	"github.com/velstore/storefront-edge/internal/logging"
)

// Limiter bounds login attempts per client
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Handler contains HTTP handlers for operator authentication
type Handler struct {
	tokens        *PasetoService
	limiter       Limiter
	logger        *logging.Logger
	apiKeyHash    string
	tokenDuration time.Duration
}

func NewHandler(tokens *PasetoService, limiter Limiter, logger *logging.Logger, apiKeyHash string, tokenDuration time.Duration) *Handler {
	return &Handler{
		tokens:        tokens,
		limiter:       limiter,
		logger:        logger,
		apiKeyHash:    apiKeyHash,
		tokenDuration: tokenDuration,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	APIKey string `json:"api_key"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the operator API key for a session token.
// @Summary      Operator login
// @Description  Exchanges the operator API key for a short-lived session token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "API key"
// @Success      200 {object} LoginResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Router       /api/admin/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	allowed, err := h.limiter.Allow(r.Context(), "admin-login:"+ip)
	if err != nil {
		h.logger.Warn("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		httputil.RespondErrorWithCode(w, "too many attempts", httputil.CodeRateLimited, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.apiKeyHash), []byte(req.APIKey)); err != nil {
		h.logger.Warn("admin login rejected", "remote_ip", ip)
		httputil.RespondErrorWithCode(w, "invalid API key", httputil.CodeInvalidAPIKey, http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.CreateToken(h.tokenDuration)
	if err != nil {
		h.logger.Error("failed to create admin token", "error", err)
		httputil.RespondError(w, "failed to create token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("admin login", "remote_ip", ip)
	httputil.RespondJSON(w, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenDuration),
	}, http.StatusOK)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP middleware may have already stripped the port
		return r.RemoteAddr
	}
	return host
}
