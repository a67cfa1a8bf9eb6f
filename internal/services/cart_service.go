package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shopspark/api/internal/repositories"
)

const cartIDPrefix = "crt_"

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartItemNotFound indicates the referenced product is not in the cart.
var ErrCartItemNotFound = errors.New("cart service: item not found")

// CartServiceDeps wires the repository and ambient dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	repo   repositories.CartRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewCartService wires dependencies into a concrete CartService implementation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo: deps.Repository,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, owner CartOwner) (Cart, error) {
	if owner.Key() == "" {
		return Cart{}, fmt.Errorf("%w: cart owner is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, owner.Key())
	if err != nil {
		if isNotFound(err) {
			return s.emptyCart(owner), nil
		}
		return Cart{}, err
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if cmd.Owner.Key() == "" {
		return Cart{}, fmt.Errorf("%w: cart owner is required", ErrCartInvalidInput)
	}
	item, err := normaliseCartItem(cmd.Item)
	if err != nil {
		return Cart{}, err
	}

	cart, err := s.GetCart(ctx, cmd.Owner)
	if err != nil {
		return Cart{}, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, item)
	}

	return s.persist(ctx, cart)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error) {
	if cmd.Owner.Key() == "" {
		return Cart{}, fmt.Errorf("%w: cart owner is required", ErrCartInvalidInput)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 0 {
		return Cart{}, fmt.Errorf("%w: quantity must not be negative", ErrCartInvalidInput)
	}

	cart, err := s.GetCart(ctx, cmd.Owner)
	if err != nil {
		return Cart{}, err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}

	if cmd.Quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = cmd.Quantity
	}

	return s.persist(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, owner CartOwner, productID string) (Cart, error) {
	if owner.Key() == "" {
		return Cart{}, fmt.Errorf("%w: cart owner is required", ErrCartInvalidInput)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return Cart{}, err
	}

	filtered := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			filtered = append(filtered, item)
		}
	}
	cart.Items = filtered

	return s.persist(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, owner CartOwner) error {
	if owner.Key() == "" {
		return fmt.Errorf("%w: cart owner is required", ErrCartInvalidInput)
	}
	if err := s.repo.DeleteCart(ctx, owner.Key()); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *cartService) persist(ctx context.Context, cart Cart) (Cart, error) {
	if cart.ID == "" {
		cart.ID = cartIDPrefix + s.newID()
	}
	cart.UpdatedAt = s.clock()

	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, err
	}
	return saved, nil
}

func (s *cartService) emptyCart(owner CartOwner) Cart {
	return Cart{
		CustomerID: owner.CustomerID,
		SessionID:  owner.SessionID,
	}
}

func normaliseCartItem(item CartItem) (CartItem, error) {
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.Title = strings.TrimSpace(item.Title)

	if item.ProductID == "" {
		return CartItem{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if item.Title == "" {
		return CartItem{}, fmt.Errorf("%w: product title is required", ErrCartInvalidInput)
	}
	if item.UnitPrice < 0 {
		return CartItem{}, fmt.Errorf("%w: unit price must not be negative", ErrCartInvalidInput)
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return item, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
