package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"interviewgo/internal/account"
	"interviewgo/internal/auth"
	"interviewgo/internal/interview"
	"interviewgo/internal/runtime"
)

// InterviewManager is the session manager surface the handlers depend on.
type InterviewManager interface {
	StartInterview(ctx context.Context, username string) (*interview.Session, bool, error)
	Submit(ctx context.Context, username, text string, onFragment func(string) error) (*interview.Reply, error)
	Quit(ctx context.Context, username string) (*interview.Session, error)
	Session(username string) (*interview.Session, bool)
	Drop(ctx context.Context, username string)
}

// Handler wires HTTP routes to the account service and the interview manager.
type Handler struct {
	accounts      *account.Service
	auth          *auth.Service
	interviews    InterviewManager
	oracleTimeout time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(accounts *account.Service, authService *auth.Service, interviews InterviewManager, oracleTimeout time.Duration) *Handler {
	if oracleTimeout <= 0 {
		oracleTimeout = 2 * time.Minute
	}
	return &Handler{
		accounts:      accounts,
		auth:          authService,
		interviews:    interviews,
		oracleTimeout: oracleTimeout,
	}
}

// check token user is match with param userID
func (h *Handler) requirePathUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := auth.IdentityFromContext(c)
		if !ok || ident.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		paramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || paramID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		if paramID != ident.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
			return
		}
		c.Next()
	}
}

func (h *Handler) authorizedIdentity(c *gin.Context) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFromContext(c)
	if !ok || ident.UserID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return nil, false
	}
	return ident, true
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)
	authMW := h.auth.Middleware()
	userRoutes := api.Group("/users/:id")
	userRoutes.Use(authMW, h.requirePathUser(), h.auth.CSRFMiddleware())
	userRoutes.POST("/interview/start", h.startInterview)
	userRoutes.POST("/interview/msg", h.captureInput)
	userRoutes.POST("/interview/quit", h.quitInterview)
	userRoutes.GET("/interview", h.getInterview)
	userRoutes.GET("/interview/history", h.getInterviewHistory)
	userRoutes.POST("/logout", h.logoutUser)
	userRoutes.DELETE("", h.deleteUser)
}

// User create&login interface
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.RegisterUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

// sessionPayload is the respondent-facing view of a session.
func sessionPayload(sess *interview.Session) gin.H {
	payload := gin.H{
		"username": sess.Username,
		"status":   sess.Status,
		"turns":    sess.VisibleTurns(),
	}
	if !sess.StartedAt.IsZero() {
		payload["started_at"] = sess.StartedAt
	}
	if sess.PreviouslyCompleted {
		payload["previously_completed"] = true
		payload["notice"] = interview.PreviouslyCompletedNotice()
	}
	return payload
}

func (h *Handler) startInterview(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.oracleTimeout)
	defer cancel()
	sess, resumed, err := h.interviews.StartInterview(ctx, ident.Username)
	if err != nil {
		if errors.Is(err, runtime.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "interview is busy, please retry"})
			return
		}
		var oerr *interview.OracleError
		if errors.As(err, &oerr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "interviewer unavailable, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payload := sessionPayload(sess)
	payload["resumed"] = resumed
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) getInterview(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	sess, ok := h.interviews.Session(ident.Username)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no interview in progress"})
		return
	}
	c.JSON(http.StatusOK, sessionPayload(sess))
}

func (h *Handler) getInterviewHistory(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	outcomes, err := h.accounts.ListInterviewOutcomes(c.Request.Context(), ident.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if outcomes == nil {
		outcomes = make([]account.Outcome, 0)
	}
	c.JSON(http.StatusOK, gin.H{"interviews": outcomes})
}

func (h *Handler) quitInterview(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	sess, err := h.interviews.Quit(c.Request.Context(), ident.Username)
	if err != nil {
		if errors.Is(err, runtime.ErrNoInterview) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no interview in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payload := sessionPayload(sess)
	payload["notice"] = interview.CancellationNotice()
	c.JSON(http.StatusOK, payload)
}

// User input interface
type inputRequest struct {
	Content string `json:"content"`
}

func (h *Handler) captureInput(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content cannot be empty"})
		return
	}

	streamCtx, cancel := context.WithTimeout(c.Request.Context(), h.oracleTimeout)
	defer cancel()
	// SSE Request construction
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		var data []byte
		switch v := payload.(type) {
		case string:
			data = []byte(v)
		default:
			var err error
			data, err = json.Marshal(v)
			if err != nil {
				return err
			}
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	// Send request
	if err := sendEvent("ack", gin.H{
		"message": gin.H{
			"role":    "respondent",
			"content": content,
		},
	}); err != nil {
		return
	}
	// Stream the interviewer's answer as it accumulates.
	var accumulated strings.Builder
	reply, err := h.interviews.Submit(streamCtx, ident.Username, content, func(fragment string) error {
		accumulated.WriteString(fragment)
		return sendEvent("stream", gin.H{"content": accumulated.String()})
	})
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, runtime.ErrBusy):
			msg = "interview is busy answering a previous turn"
		case errors.Is(err, runtime.ErrNoInterview):
			msg = "no interview in progress"
		case errors.Is(err, interview.ErrSessionNotActive):
			msg = "interview has already finished"
		}
		_ = sendEvent("error", gin.H{"message": msg})
		return
	}
	payload := gin.H{
		"content": reply.Display,
		"status":  reply.Status,
	}
	if reply.Closing != "" {
		payload["closing"] = reply.Closing
	}
	_ = sendEvent("done", payload)
}

func (h *Handler) logoutUser(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	h.interviews.Drop(c.Request.Context(), ident.Username)
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteUser(c *gin.Context) {
	ident, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	if err := h.auth.RevokeUserTokens(c.Request.Context(), ident.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.interviews.Drop(c.Request.Context(), ident.Username)
	if err := h.accounts.DeleteUser(c.Request.Context(), ident.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
