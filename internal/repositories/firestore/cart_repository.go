package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/shopspark/api/internal/domain"
	pfirestore "github.com/shopspark/api/internal/platform/firestore"
	"github.com/shopspark/api/internal/repositories"
)

const defaultCartCollection = "carts"

// CartRepository persists shopper carts in Firestore keyed by owner.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider, collection string) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	name := strings.TrimSpace(collection)
	if name == "" {
		name = defaultCartCollection
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, name, nil, nil)
	return &CartRepository{base: base}, nil
}

// GetCart loads the cart for the given owner key.
func (r *CartRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Cart{}, errors.New("cart repository: owner id is required")
	}

	doc, err := r.base.Get(ctx, ownerID)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(doc), nil
}

// UpsertCart writes the full cart document keyed by its owner.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	ownerID := cartOwnerKey(cart)
	if ownerID == "" {
		return domain.Cart{}, errors.New("cart repository: cart owner is required")
	}

	updatedAt := cart.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	doc := cartDocument{
		CartID:     strings.TrimSpace(cart.ID),
		CustomerID: strings.TrimSpace(cart.CustomerID),
		SessionID:  strings.TrimSpace(cart.SessionID),
		Items:      encodeCartItems(cart.Items),
		UpdatedAt:  updatedAt,
	}

	result, err := r.base.Set(ctx, ownerID, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.ID = doc.CartID
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// DeleteCart removes the owner's cart document.
func (r *CartRepository) DeleteCart(ctx context.Context, ownerID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errors.New("cart repository: owner id is required")
	}
	return r.base.Delete(ctx, ownerID)
}

func cartOwnerKey(cart domain.Cart) string {
	if id := strings.TrimSpace(cart.CustomerID); id != "" {
		return id
	}
	return strings.TrimSpace(cart.SessionID)
}

func decodeCartDocument(doc pfirestore.Document[cartDocument]) domain.Cart {
	updatedAt := doc.Data.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = doc.UpdateTime
	}
	return domain.Cart{
		ID:         doc.Data.CartID,
		CustomerID: doc.Data.CustomerID,
		SessionID:  doc.Data.SessionID,
		Items:      decodeCartItems(doc.Data.Items),
		UpdatedAt:  updatedAt,
	}
}

func encodeCartItems(items []domain.CartItem) []cartItemDocument {
	if len(items) == 0 {
		return nil
	}
	out := make([]cartItemDocument, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func decodeCartItems(items []cartItemDocument) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CartItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	return out
}

type cartDocument struct {
	CartID     string             `firestore:"cartId,omitempty"`
	CustomerID string             `firestore:"customerId,omitempty"`
	SessionID  string             `firestore:"sessionId,omitempty"`
	Items      []cartItemDocument `firestore:"items"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ProductID string `firestore:"productId"`
	Title     string `firestore:"title"`
	UnitPrice int64  `firestore:"unitPrice"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
	Quantity  int    `firestore:"quantity"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
