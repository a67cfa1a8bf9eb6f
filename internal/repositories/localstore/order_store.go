// Package localstore provides the durable on-disk order cache used when the
// remote store rejects a write or the shopper has no account. Records are
// kept in a single JSON document rewritten atomically on every append.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/repositories"
)

const defaultStorageName = "shopspark-orders"

// OrderStore is a file-backed FallbackOrderRepository.
type OrderStore struct {
	path    string
	storage string

	mu sync.Mutex
}

// Option customises the store.
type Option func(*OrderStore)

// WithStorageName overrides the logical collection name recorded in the file.
func WithStorageName(name string) Option {
	return func(s *OrderStore) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.storage = trimmed
		}
	}
}

// NewOrderStore constructs the store and ensures the parent directory exists.
func NewOrderStore(path string, opts ...Option) (*OrderStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("localstore: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create directory: %w", err)
	}

	store := &OrderStore{
		path:    path,
		storage: defaultStorageName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Append persists the order, rewriting the whole document under the lock.
func (s *OrderStore) Append(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, errors.New("localstore: order id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.Order{}, err
	}

	doc.Orders = append(doc.Orders, encodeOrder(order))
	if err := s.save(doc); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// List returns every cached order in insertion order.
func (s *OrderStore) List(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(doc.Orders))
	for _, record := range doc.Orders {
		orders = append(orders, decodeOrder(record))
	}
	return orders, nil
}

// FindByID returns the cached order or a not-found error.
func (s *OrderStore) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("localstore: order id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.Order{}, err
	}

	for _, record := range doc.Orders {
		if record.ID == orderID {
			return decodeOrder(record), nil
		}
	}
	return domain.Order{}, &notFoundError{orderID: orderID}
}

func (s *OrderStore) load() (storeDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return storeDocument{StorageName: s.storage}, nil
	}
	if err != nil {
		return storeDocument{}, fmt.Errorf("localstore: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return storeDocument{StorageName: s.storage}, nil
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return storeDocument{}, fmt.Errorf("localstore: decode %s: %w", s.path, err)
	}
	if doc.StorageName == "" {
		doc.StorageName = s.storage
	}
	return doc, nil
}

// save writes to a temp file and renames it over the target so readers never
// observe a partially written document.
func (s *OrderStore) save(doc storeDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("localstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("localstore: rename %s: %w", tmp, err)
	}
	return nil
}

type notFoundError struct {
	orderID string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("localstore: order %s not found", e.orderID)
}

func (e *notFoundError) IsNotFound() bool    { return true }
func (e *notFoundError) IsConflict() bool    { return false }
func (e *notFoundError) IsUnavailable() bool { return false }

type storeDocument struct {
	StorageName string        `json:"storageName"`
	Orders      []orderRecord `json:"orders"`
}

type orderRecord struct {
	ID            string            `json:"id"`
	OrderNumber   string            `json:"orderNumber"`
	CustomerID    string            `json:"customerId,omitempty"`
	Items         []lineItemRecord  `json:"items"`
	Shipping      shippingRecord    `json:"shippingAddress"`
	PaymentMethod string            `json:"paymentMethod"`
	Totals        orderTotalsRecord `json:"totals"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type lineItemRecord struct {
	ID        string `json:"id,omitempty"`
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

type shippingRecord struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
}

type orderTotalsRecord struct {
	Subtotal          int64 `json:"subtotal"`
	ShippingSurcharge int64 `json:"shippingSurcharge"`
	Tax               int64 `json:"tax"`
	Total             int64 `json:"total"`
}

func encodeOrder(order domain.Order) orderRecord {
	items := make([]lineItemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemRecord{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return orderRecord{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Items:       items,
		Shipping: shippingRecord{
			FirstName: order.ShippingAddress.FirstName,
			LastName:  order.ShippingAddress.LastName,
			Email:     order.ShippingAddress.Email,
			Address:   order.ShippingAddress.Address,
			City:      order.ShippingAddress.City,
			State:     order.ShippingAddress.State,
			ZipCode:   order.ShippingAddress.ZipCode,
		},
		PaymentMethod: string(order.PaymentMethod),
		Totals: orderTotalsRecord{
			Subtotal:          order.Totals.Subtotal,
			ShippingSurcharge: order.Totals.ShippingSurcharge,
			Tax:               order.Totals.Tax,
			Total:             order.Totals.Total,
		},
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt.UTC(),
	}
}

func decodeOrder(record orderRecord) domain.Order {
	items := make([]domain.OrderLineItem, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, domain.OrderLineItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return domain.Order{
		ID:          record.ID,
		OrderNumber: record.OrderNumber,
		CustomerID:  record.CustomerID,
		Items:       items,
		ShippingAddress: domain.ShippingAddress{
			FirstName: record.Shipping.FirstName,
			LastName:  record.Shipping.LastName,
			Email:     record.Shipping.Email,
			Address:   record.Shipping.Address,
			City:      record.Shipping.City,
			State:     record.Shipping.State,
			ZipCode:   record.Shipping.ZipCode,
		},
		PaymentMethod: domain.PaymentMethod(record.PaymentMethod),
		Totals: domain.OrderTotals{
			Subtotal:          record.Totals.Subtotal,
			ShippingSurcharge: record.Totals.ShippingSurcharge,
			Tax:               record.Totals.Tax,
			Total:             record.Totals.Total,
		},
		Status:    domain.OrderStatus(record.Status),
		CreatedAt: record.CreatedAt,
	}
}

var _ repositories.FallbackOrderRepository = (*OrderStore)(nil)
var _ repositories.RepositoryError = (*notFoundError)(nil)
