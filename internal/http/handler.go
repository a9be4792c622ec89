package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/catalog"
	"github.com/pm3/bigcord/internal/checkout"
	"github.com/pm3/bigcord/internal/view"
)

const maxBodyBytes = 1 << 20

type CartService interface {
	Create(ctx context.Context) (cart.Result, error)
	Get(ctx context.Context, cartID string) (cart.Result, error)
	Dispatch(ctx context.Context, cartID string, cmd cart.Command) (cart.Result, error)
	Choices() cart.Choices
}

type Catalog interface {
	Page(ctx context.Context, offset, limit int) (catalog.Page, error)
	Product(ctx context.Context, sku string) (catalog.Product, error)
	Variant(ctx context.Context, sku string) (catalog.Variant, error)
}

type Checkout interface {
	Submit(ctx context.Context, cartID string, f checkout.Form, correlationID string) (checkout.Receipt, error)
}

type Handler struct {
	carts    CartService
	catalog  Catalog
	checkout Checkout
	logger   *zap.Logger
}

func NewHandler(carts CartService, cat Catalog, co Checkout, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{carts: carts, catalog: cat, checkout: co, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	page, err := h.catalog.Page(r.Context(), offset, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetVariant(w http.ResponseWriter, r *http.Request) {
	v, err := h.catalog.Variant(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.RenderOptions(h.carts.Choices()))
}

type cartResponse struct {
	Cart    view.CartView `json:"cart"`
	Signals cart.Signals  `json:"signals"`
}

func render(res cart.Result) cartResponse {
	return cartResponse{Cart: view.Render(res.State, res.Totals), Signals: res.Signals}
}

func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.Create(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, render(res))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render(res))
}

type addItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SKU) == "" {
		writeError(w, r, http.StatusBadRequest, "sku is required")
		return
	}

	p, err := h.catalog.Product(r.Context(), req.SKU)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.dispatch(w, r, cart.AddItem{
		ItemID:     p.SKU,
		ProductID:  p.SKU,
		Name:       p.Name,
		UnitPrice:  p.UnitPrice(),
		Quantity:   req.Quantity,
		StockLimit: p.StockLevel(),
	})
}

// updateItemRequest carries either a typed quantity (number or string, as
// typed into the input) or a +/- step.
type updateItemRequest struct {
	Quantity json.RawMessage `json:"quantity"`
	Step     string          `json:"step"`
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decode(w, r, &req) {
		return
	}
	itemID := chi.URLParam(r, "itemId")

	switch {
	case req.Step != "":
		h.dispatch(w, r, cart.StepQuantity{ItemID: itemID, Step: cart.Step(req.Step)})
	case len(req.Quantity) > 0:
		raw := string(req.Quantity)
		var s string
		if json.Unmarshal(req.Quantity, &s) == nil {
			raw = s
		}
		h.dispatch(w, r, cart.EditQuantity{ItemID: itemID, Raw: raw})
	default:
		writeError(w, r, http.StatusBadRequest, "quantity or step is required")
	}
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, cart.RemoveItem{ItemID: chi.URLParam(r, "itemId")})
}

type optionRequest struct {
	OptionID string `json:"optionId"`
}

func (h *Handler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, r, cart.SelectShipping{OptionID: req.OptionID})
}

func (h *Handler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, r, cart.SelectPayment{OptionID: req.OptionID})
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon answers 200 even for unknown codes; the rejection is carried
// in signals.invalidCoupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, r, cart.ApplyCoupon{Code: req.Code})
}

func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, cart.RemoveCoupon{})
}

type checkoutResponse struct {
	OrderRef string `json:"orderRef"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if !decode(w, r, &form) {
		return
	}

	receipt, err := h.checkout.Submit(r.Context(), chi.URLParam(r, "cartId"), form, GetCorrelationID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{OrderRef: receipt.OrderRef})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, cmd cart.Command) {
	res, err := h.carts.Dispatch(r.Context(), chi.URLParam(r, "cartId"), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render(res))
}

type errorResponse struct {
	Error         string                `json:"error"`
	Code          string                `json:"code,omitempty"`
	Fields        []checkout.FieldError `json:"fields,omitempty"`
	CorrelationID string                `json:"correlationId,omitempty"`
}

// fail maps domain errors to status codes. Anything unrecognised is logged
// and reported as a 500 without details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cmdErr *cart.CommandError
		valErr *checkout.ValidationError
	)
	switch {
	case errors.As(err, &cmdErr):
		writeJSON(w, commandStatus(cmdErr.Code), errorResponse{
			Error:         cmdErr.Message,
			Code:          cmdErr.Code.String(),
			CorrelationID: GetCorrelationID(r.Context()),
		})
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:         "invalid checkout form",
			Fields:        valErr.Fields,
			CorrelationID: GetCorrelationID(r.Context()),
		})
	case errors.Is(err, cart.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "cart not found")
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, r, http.StatusNotFound, "product not found")
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "catalog unavailable")
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, r, http.StatusConflict, "cart is empty")
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", GetCorrelationID(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func commandStatus(code cart.StatusCode) int {
	switch code {
	case cart.StatusFailedPrecondition:
		return http.StatusConflict
	case cart.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, CorrelationID: GetCorrelationID(r.Context())})
}
