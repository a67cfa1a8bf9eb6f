package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/shopspark/api/internal/domain"
	pfirestore "github.com/shopspark/api/internal/platform/firestore"
	"github.com/shopspark/api/internal/repositories"
)

const (
	defaultOrderCollection  = "orders"
	orderItemsSubcollection = "items"
)

// OrderRepository persists order headers and their line items in Firestore.
// Line items live in a subcollection under the header document, written in
// a separate call after the header.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider, collection string) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	name := strings.TrimSpace(collection)
	if name == "" {
		name = defaultOrderCollection
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, name, nil, nil)
	return &OrderRepository{base: base}, nil
}

// InsertHeader creates the order header document. The order ID must already
// be assigned; an existing document with the same ID is a conflict.
func (r *OrderRepository) InsertHeader(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	createdAt := order.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := orderDocument{
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		Shipping:      encodeShippingAddress(order.ShippingAddress),
		Totals: orderTotalsDocument{
			Subtotal:          order.Totals.Subtotal,
			ShippingSurcharge: order.Totals.ShippingSurcharge,
			Tax:               order.Totals.Tax,
			Total:             order.Totals.Total,
		},
		ItemsCount: len(order.Items),
		CreatedAt:  createdAt,
	}

	if _, err := r.base.Create(ctx, orderID, doc); err != nil {
		return domain.Order{}, err
	}

	saved := order
	saved.CreatedAt = createdAt
	return saved, nil
}

// InsertLineItems writes the order's line items beneath the header document.
func (r *OrderRepository) InsertLineItems(ctx context.Context, orderID string, items []domain.OrderLineItem) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	headerRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}

	coll := headerRef.Collection(orderItemsSubcollection)
	for _, item := range items {
		itemID := strings.TrimSpace(item.ID)
		if itemID == "" {
			itemID = item.ProductID
		}
		doc := orderItemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		if _, err := coll.Doc(itemID).Set(ctx, doc); err != nil {
			return pfirestore.WrapError("orders.items.set", err)
		}
	}
	return nil
}

// FindByID loads the order header and its line items.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order := decodeOrderDocument(doc)
	items, err := r.loadLineItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, errors.New("order repository: customer id is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("customerId", "==", customerID)
		if filter.Status != nil {
			query = query.Where("status", "==", string(*filter.Status))
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := decodeOrderDocument(doc)
		items, err := r.loadLineItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *OrderRepository) loadLineItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	headerRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := headerRef.Collection(orderItemsSubcollection).Documents(ctx)
	defer iter.Stop()

	var items []domain.OrderLineItem
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.items.list", err)
		}
		var doc orderItemDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("orders.items.decode", err)
		}
		items = append(items, domain.OrderLineItem{
			ID:        snapshot.Ref.ID,
			ProductID: doc.ProductID,
			Title:     doc.Title,
			UnitPrice: doc.UnitPrice,
			Quantity:  doc.Quantity,
		})
	}
	return items, nil
}

func decodeOrderDocument(doc pfirestore.Document[orderDocument]) domain.Order {
	createdAt := doc.Data.CreatedAt
	if createdAt.IsZero() {
		createdAt = doc.UpdateTime
	}
	return domain.Order{
		ID:            doc.ID,
		OrderNumber:   doc.Data.OrderNumber,
		CustomerID:    doc.Data.CustomerID,
		PaymentMethod: domain.PaymentMethod(doc.Data.PaymentMethod),
		Status:        domain.OrderStatus(doc.Data.Status),
		ShippingAddress: domain.ShippingAddress{
			FirstName: doc.Data.Shipping.FirstName,
			LastName:  doc.Data.Shipping.LastName,
			Email:     doc.Data.Shipping.Email,
			Address:   doc.Data.Shipping.Address,
			City:      doc.Data.Shipping.City,
			State:     doc.Data.Shipping.State,
			ZipCode:   doc.Data.Shipping.ZipCode,
		},
		Totals: domain.OrderTotals{
			Subtotal:          doc.Data.Totals.Subtotal,
			ShippingSurcharge: doc.Data.Totals.ShippingSurcharge,
			Tax:               doc.Data.Totals.Tax,
			Total:             doc.Data.Totals.Total,
		},
		CreatedAt: createdAt,
	}
}

func encodeShippingAddress(addr domain.ShippingAddress) shippingAddressDocument {
	return shippingAddressDocument{
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Email:     addr.Email,
		Address:   addr.Address,
		City:      addr.City,
		State:     addr.State,
		ZipCode:   addr.ZipCode,
	}
}

type orderDocument struct {
	OrderNumber   string                  `firestore:"orderNumber"`
	CustomerID    string                  `firestore:"customerId"`
	PaymentMethod string                  `firestore:"paymentMethod"`
	Status        string                  `firestore:"status"`
	Shipping      shippingAddressDocument `firestore:"shipping"`
	Totals        orderTotalsDocument     `firestore:"totals"`
	ItemsCount    int                     `firestore:"itemsCount"`
	CreatedAt     time.Time               `firestore:"createdAt"`
}

type shippingAddressDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email,omitempty"`
	Address   string `firestore:"address"`
	City      string `firestore:"city"`
	State     string `firestore:"state"`
	ZipCode   string `firestore:"zipCode"`
}

type orderTotalsDocument struct {
	Subtotal          int64 `firestore:"subtotal"`
	ShippingSurcharge int64 `firestore:"shippingSurcharge"`
	Tax               int64 `firestore:"tax"`
	Total             int64 `firestore:"total"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Title     string `firestore:"title"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
