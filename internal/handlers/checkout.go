package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/platform/httpx"
	"github.com/shopspark/api/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes the checkout submission and resume endpoints.
// Submission is open to guests; the service decides whether a sign-in
// gate applies.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.OptionalFirebaseAuth())
	}
	group.Post("/", h.submit)
	group.Post("/resume", h.resume)
}

type checkoutSubmitRequest struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
	CardNumber    string `json:"cardNumber"`
	CardName      string `json:"cardName"`
	ExpiryDate    string `json:"expiryDate"`
	CVV           string `json:"cvv"`
	PaymentMethod string `json:"paymentMethod"`
}

type checkoutSubmitResponse struct {
	State       string            `json:"state"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	RedirectTo  string            `json:"redirect_to,omitempty"`
	Order       *orderPayload     `json:"order,omitempty"`
}

type checkoutResumeResponse struct {
	ResumeCheckout bool   `json:"resume_checkout"`
	ReturnTo       string `json:"return_to,omitempty"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkoutSubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.SubmitCheckoutCommand{
		SessionID: strings.TrimSpace(r.Header.Get(SessionHeader)),
		Form: services.FormValues{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Email:      req.Email,
			Address:    req.Address,
			City:       req.City,
			State:      req.State,
			ZipCode:    req.ZipCode,
			CardNumber: req.CardNumber,
			CardName:   req.CardName,
			ExpiryDate: req.ExpiryDate,
			CVV:        req.CVV,
		},
		PaymentMethod: services.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		cmd.CustomerID = strings.TrimSpace(identity.UID)
		cmd.CustomerEmail = strings.TrimSpace(identity.Email)
	}

	result, err := h.checkout.SubmitCheckout(ctx, cmd)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	resp := checkoutSubmitResponse{
		State:      string(result.State),
		RedirectTo: result.RedirectTo,
	}
	if len(result.FieldErrors) > 0 {
		resp.FieldErrors = result.FieldErrors
	}
	if result.Order != nil {
		payload := buildOrderPayload(*result.Order)
		resp.Order = &payload
	}

	writeJSONResponse(w, submitStatusCode(result), resp)
}

func (h *CheckoutHandlers) resume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	decision, err := h.checkout.ConsumeResumeSignal(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutResumeResponse{
		ResumeCheckout: decision.ResumeCheckout,
		ReturnTo:       decision.ReturnTo,
	})
}

// submitStatusCode maps orchestrator outcomes onto the HTTP surface:
// validation failures are 422, the sign-in gate is 409, and a saved
// order is 201.
func submitStatusCode(result services.CheckoutResult) int {
	switch result.State {
	case services.CheckoutStateSucceeded:
		return http.StatusCreated
	case services.CheckoutStateAuthGate:
		return http.StatusConflict
	default:
		if len(result.FieldErrors) > 0 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	}
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderSaveFailed):
		httpx.WriteError(ctx, w, httpx.NewError("order_save_failed", "order could not be saved; please retry", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
