package transport

import (
	"net/http"

	"shoptalk/internal/middleware"
	"shoptalk/internal/repository"
	"shoptalk/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	ShopName string `json:"shop_name" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

// UserProfile represents shopkeeper profile data
type UserProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ShopName string `json:"shop_name"`
}

// UserHandler handles HTTP requests for account operations
type UserHandler struct {
	userService service.UserService
	stats       repository.StatsRepository
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, stats repository.StatsRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		stats:       stats,
		logger:      logger,
	}
}

// RegisterRoutes registers all account routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		// Public routes
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/profile", h.GetProfile)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))
		r.Get("/stats", h.GetSystemStats)
	})
}

// Signup handles shopkeeper registration
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Signup validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Signup(r.Context(), req.Name, req.Email, req.Password, req.ShopName)
	if err != nil {
		h.logger.Error("Signup failed", zap.Error(err))

		if err == repository.ErrUserAlreadyExists {
			middleware.RespondWithError(w, http.StatusConflict, "user with this email already exists")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to sign up")
		return
	}

	profile := UserProfile{
		ID:       user.ID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		ShopName: user.ShopName,
	}

	h.logger.Info("Shopkeeper signed up", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, profile)
}

// Login handles shopkeeper authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))

		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if err == service.ErrAccountDisabled {
			middleware.RespondWithError(w, http.StatusForbidden, "account is disabled")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	response := LoginResponse{
		AccessToken: accessToken,
		User: UserProfile{
			ID:       user.ID.String(),
			Name:     user.Name,
			Email:    user.Email,
			Role:     user.Role,
			ShopName: user.ShopName,
		},
	}

	h.logger.Info("Shopkeeper logged in", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProfile handles getting the authenticated shopkeeper's profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	profile := UserProfile{
		ID:       user.ID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		ShopName: user.ShopName,
	}

	middleware.RespondWithJSON(w, http.StatusOK, profile)
}

// GetSystemStats handles the admin-only system counters view
func (h *UserHandler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.SystemStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get system stats", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get system stats")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}
