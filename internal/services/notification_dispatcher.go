package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultNotifyTimeout = 10 * time.Second

const (
	notifyEventSent    = "notification.sent"
	notifyEventSkipped = "notification.skipped"
	notifyEventFailed  = "notification.failed"
)

// orderConfirmationPayload is the request body delivered to the confirmation endpoint.
type orderConfirmationPayload struct {
	OrderID         string                    `json:"orderId"`
	OrderNumber     string                    `json:"orderNumber"`
	CustomerEmail   string                    `json:"customerEmail"`
	CustomerName    string                    `json:"customerName"`
	Items           []confirmationItemPayload `json:"items"`
	TotalAmount     int64                     `json:"totalAmount"`
	ShippingAddress string                    `json:"shippingAddress"`
}

type confirmationItemPayload struct {
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// NotificationDispatcherDeps enumerates the collaborators for the confirmation dispatcher.
type NotificationDispatcherDeps struct {
	EndpointURL string
	AuthToken   string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type notificationDispatcher struct {
	endpoint string
	token    string
	client   *http.Client
	timeout  time.Duration
	logger   func(context.Context, string, map[string]any)
}

// NewNotificationDispatcher wires dependencies into a NotificationDispatcher implementation.
func NewNotificationDispatcher(deps NotificationDispatcherDeps) (NotificationDispatcher, error) {
	endpoint := strings.TrimSpace(deps.EndpointURL)
	if endpoint == "" {
		return nil, errors.New("notification dispatcher: endpoint url is required")
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultNotifyTimeout}
	}

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationDispatcher{
		endpoint: endpoint,
		token:    strings.TrimSpace(deps.AuthToken),
		client:   client,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Notify delivers the order confirmation on a best effort basis. Delivery
// failures are logged and swallowed so the checkout outcome never depends
// on the notification channel.
func (d *notificationDispatcher) Notify(ctx context.Context, order Order) {
	email := strings.TrimSpace(order.ShippingAddress.Email)
	if email == "" {
		d.logger(ctx, notifyEventSkipped, map[string]any{
			"orderId": order.ID,
			"reason":  "no email address",
		})
		return
	}

	if err := d.send(ctx, order, email); err != nil {
		d.logger(ctx, notifyEventFailed, map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return
	}

	d.logger(ctx, notifyEventSent, map[string]any{
		"orderId": order.ID,
	})
}

func (d *notificationDispatcher) send(ctx context.Context, order Order, email string) error {
	payload := buildConfirmationPayload(order, email)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode confirmation payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build confirmation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver confirmation: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("confirmation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func buildConfirmationPayload(order Order, email string) orderConfirmationPayload {
	items := make([]confirmationItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, confirmationItemPayload{
			Title:    item.Title,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}

	return orderConfirmationPayload{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerEmail:   email,
		CustomerName:    order.ShippingAddress.FullName(),
		Items:           items,
		TotalAmount:     order.Totals.Total,
		ShippingAddress: formatShippingAddress(order.ShippingAddress),
	}
}

func formatShippingAddress(addr ShippingAddress) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{addr.Address, addr.City, addr.State, addr.ZipCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
