package transport

import (
	"context"
	"net/http"

	"shoptalk/internal/middleware"
	"shoptalk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatRequest represents one incoming shopkeeper message
type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=1000"`
}

// ChatHandler handles the chat surface and the read-only projection
// endpoints backing the dashboard.
type ChatHandler struct {
	assistant *service.AssistantService
	logger    *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(assistant *service.AssistantService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: assistant,
		logger:    logger,
	}
}

// RegisterRoutes registers the chat and projection routes. All of them
// require authentication; rateLimiter additionally guards the chat
// endpoint, which is the only one that writes.
func (h *ChatHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimiter func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Group(func(r chi.Router) {
			if rateLimiter != nil {
				r.Use(rateLimiter)
			}
			r.Post("/chat", h.Chat)
		})

		r.Get("/inventory", h.GetInventory)
		r.Get("/summary", h.GetSummary)
		r.Get("/invoices", h.GetInvoices)
		r.Get("/reorder", h.GetReorderSuggestions)
		r.Get("/notifications/low-stock", h.GetLowStockNotifications)
	})
}

// Chat handles one free-text message
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Chat validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.assistant.HandleCommand(r.Context(), userID, req.Message)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// GetInventory returns the shopkeeper's full catalog
func (h *ChatHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	h.respondForUser(w, r, "inventory", func(ctx context.Context, userID uuid.UUID) (any, error) {
		return h.assistant.ListInventory(ctx, userID)
	})
}

// GetSummary returns today's sales summary
func (h *ChatHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.respondForUser(w, r, "summary", func(ctx context.Context, userID uuid.UUID) (any, error) {
		return h.assistant.DailySummary(ctx, userID)
	})
}

// GetInvoices returns the shopkeeper's invoices, newest first
func (h *ChatHandler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	h.respondForUser(w, r, "invoices", func(ctx context.Context, userID uuid.UUID) (any, error) {
		return h.assistant.ListInvoices(ctx, userID)
	})
}

// GetReorderSuggestions returns products below the low-stock threshold
func (h *ChatHandler) GetReorderSuggestions(w http.ResponseWriter, r *http.Request) {
	h.respondForUser(w, r, "reorder suggestions", func(ctx context.Context, userID uuid.UUID) (any, error) {
		return h.assistant.ReorderSuggestions(ctx, userID)
	})
}

// GetLowStockNotifications returns out-of-stock and low-stock alerts
func (h *ChatHandler) GetLowStockNotifications(w http.ResponseWriter, r *http.Request) {
	h.respondForUser(w, r, "low stock notifications", func(ctx context.Context, userID uuid.UUID) (any, error) {
		return h.assistant.LowStockNotifications(ctx, userID)
	})
}

// respondForUser resolves the authenticated owner, runs the projection
// and writes the JSON result.
func (h *ChatHandler) respondForUser(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context, userID uuid.UUID) (any, error)) {
	userID, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := fn(r.Context(), userID)
	if err != nil {
		h.logger.Error("Projection failed", zap.String("projection", name), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get "+name)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, data)
}
