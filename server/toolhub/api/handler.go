package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	commonauth "toolhub/server/common/auth"
	"toolhub/server/common/log"
	"toolhub/server/common/middleware"
	"toolhub/server/common/transport/httpresp"
	"toolhub/server/toolhub/domain"
	"toolhub/server/toolhub/service"
)

type Handler struct {
	convert *service.ConvertService
	users   *service.UserService
	sweeper *service.Sweeper
	auth    *commonauth.Service
	usage   *service.UsageService
	limiter gin.HandlerFunc
}

func NewHandler(convert *service.ConvertService, users *service.UserService, sweeper *service.Sweeper, auth *commonauth.Service, usage *service.UsageService, limiter gin.HandlerFunc) *Handler {
	return &Handler{convert: convert, users: users, sweeper: sweeper, auth: auth, usage: usage, limiter: limiter}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// accounting sits outermost so requests the gates reject still count
	api := r.Group("/api")
	api.Use(middleware.ObserveActivity(h.usage))
	api.Use(middleware.AuthOptional(h.auth))
	if h.limiter != nil {
		api.Use(h.limiter)
	}
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/convert/:tool", middleware.UploadGate(), h.convertTool)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		admin.POST("/sweep", h.sweep)
	}
}

func (h *Handler) convertTool(c *gin.Context) {
	upload, ok := middleware.UploadFrom(c)
	if !ok || len(upload.Files) == 0 {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrNoFiles))
		return
	}
	result, err := h.convert.Convert(c.Request.Context(), c.Param("tool"), upload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewConversionResponse(result.URL, result.Key))
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("username and password are required"))
		return
	}
	token, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewTokenResponse(token))
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("username and password are required"))
		return
	}
	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewTokenResponse(token))
}

func (h *Handler) sweep(c *gin.Context) {
	deleted, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.SweepResponse{Deleted: deleted})
}

// writeError maps the error taxonomy to a status and a caller-safe message.
// Internal failure detail goes to the server log only.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(domain.ErrUsernameTaken.Error()))
	case errors.Is(err, domain.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(httpresp.ErrPayloadTooLarge))
	case errors.Is(err, domain.ErrUnsupportedMedia):
		c.JSON(http.StatusUnsupportedMediaType, httpresp.NewErrorResponse(httpresp.ErrUnsupportedMedia))
	case errors.Is(err, domain.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidCredential))
	case errors.Is(err, domain.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidLogin))
	default:
		log.Errorf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
	}
}
