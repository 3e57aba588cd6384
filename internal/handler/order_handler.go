package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"shopdemo/order-service/internal/model"
	"shopdemo/order-service/internal/repository"
	"shopdemo/order-service/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderService defines what the order endpoints need from the service layer.
type OrderService interface {
	Purchase(ctx context.Context, userID, productID, qty int) error
	GetOrder(ctx context.Context, orderID int) (model.Order, error)
}

type OrderHandler struct {
	svc    OrderService
	tracer trace.Tracer
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{
		svc:    svc,
		tracer: otel.Tracer("order-service"),
	}
}

// GetOrder handles GET /order/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to shop", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(order); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Purchase handles POST /order/{user_id}/{product_id}/{qty}. The path values
// are canonical; the same three integers are accepted as query parameters.
func (h *OrderHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok1 := intParam(r, "user_id")
	productID, ok2 := intParam(r, "product_id")
	qty, ok3 := intParam(r, "qty")
	if !ok1 || !ok2 || !ok3 {
		http.Error(w, "invalid purchase parameters", http.StatusBadRequest)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "purchase")
	defer span.End()
	span.SetAttributes(
		attribute.Int("user_id", userID),
		attribute.Int("product_id", productID),
		attribute.Int("qty", qty),
	)

	if err := h.svc.Purchase(ctx, userID, productID, qty); err != nil {
		span.RecordError(err)
		if service.IsPrecondition(err) {
			http.Error(w, "Not enough balance", http.StatusPreconditionFailed)
			return
		}
		http.Error(w, "Failed to shop", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Purchased successfully"))
}

func intParam(r *http.Request, name string) (int, bool) {
	if v, err := strconv.Atoi(chi.URLParam(r, name)); err == nil {
		return v, true
	}
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v, true
	}
	return 0, false
}
