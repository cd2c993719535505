package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"library_auth/internal/models"
	"library_auth/internal/service"
)

// jwtCookieName is the cookie consulted when no Authorization header is
// present, and the one Login sets.
const jwtCookieName = "jwt"

type Handler struct {
	serviceLayer service.Service
	log          *slog.Logger
	env          string
}

func NewHandler(srvc service.Service, lgr *slog.Logger, env string) *Handler {
	return &Handler{
		serviceLayer: srvc,
		log:          lgr,
		env:          env,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

// failResponse is the envelope the auth middleware answers with.
type failResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func newFailResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, failResponse{Status: "fail", Message: errMessage})
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.Login)

		authGroup.Use(h.AuthMiddleware())
		authGroup.GET("/profile", h.GetProfile)
	}

	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)

		users.Use(h.AuthMiddleware())
		users.GET("", h.RequireRoles(models.RoleAdmin), h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.RequireRoles(models.RoleAdmin), h.DeleteUser)
	}

	return router
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Email and password are required")

		return
	}

	token, user, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			newErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			// One message for unknown email and wrong password.
			newErrorResponse(c, http.StatusUnauthorized, "Invalid email or password")
		default:
			log.Error("login failed", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "An error occurred during login")
		}

		return
	}

	h.setTokenCookie(c, token)

	log.Info("user logged in", slog.String("user_id", user.ID.String()))

	c.JSON(http.StatusOK, loginResponse{
		Token: token,
		User:  user,
	})
}

// setTokenCookie mirrors the token into an httpOnly cookie so browser
// clients do not have to hold it in script-visible storage.
func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	maxAge := int(h.serviceLayer.TokenCodec().TTL().Seconds())
	secure := h.env == "prod"

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(jwtCookieName, token, maxAge, "/", "", secure, true)
}

// GET /auth/profile
func (h *Handler) GetProfile(c *gin.Context) {
	const op = "handler.GetProfile"

	log := h.log.With(slog.String("op", op))

	user, ok := CurrentUser(c)
	if !ok {
		log.Error("no authenticated user in context")

		newFailResponse(c, http.StatusUnauthorized, msgNotLoggedIn)

		return
	}

	c.JSON(http.StatusOK, user.Public())
}
