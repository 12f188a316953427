package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/internal/catalog"
	"github.com/angelmondragon/pos-backend/internal/sales"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

// Service exposes the cart operations of one register session.
type Service interface {
	Get(ctx context.Context, sessionID string) (*View, error)
	AddItem(ctx context.Context, sessionID string, productID int) (*View, error)
	SetQuantity(ctx context.Context, sessionID string, productID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, sessionID string, productID int) (*View, error)
	Checkout(ctx context.Context, sessionID string, input CheckoutInput) (*Receipt, error)
}

// View is the cart as returned to the register.
type View struct {
	Items     []ViewItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     float64    `json:"total"`
}

type ViewItem struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// CheckoutInput carries the raw checkout form.
type CheckoutInput struct {
	PaymentMethod string
	Salesman      string
}

// Receipt describes the sale submitted by Checkout.
type Receipt struct {
	ID            string              `json:"id"`
	OrderID       string              `json:"orderId"`
	Total         float64             `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Salesman      string              `json:"salesman"`
	Items         types.SaleItems     `json:"items"`
	SubmittedAt   time.Time           `json:"submittedAt"`
}

type service struct {
	repo     CartRepository
	products ProductLookup
	sales    SaleRecorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products ProductLookup, recorder SaleRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("sale recorder required")
	}
	return &service{
		repo:     repo,
		products: products,
		sales:    recorder,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*View, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newView(c), nil
}

// AddItem adds one unit of productID. Unknown products leave the cart as is.
func (s *service) AddItem(ctx context.Context, sessionID string, productID int) (*View, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) bool {
		return c.Add(s.products, productID)
	})
}

func (s *service) SetQuantity(ctx context.Context, sessionID string, productID, quantity int) (*View, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) bool {
		c.SetQuantity(productID, quantity)
		return true
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID int) (*View, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) bool {
		c.Remove(productID)
		return true
	})
}

// Checkout submits the cart as a sale and clears it right away; the store
// write completes in the background and failures surface on the error channel.
func (s *service) Checkout(ctx context.Context, sessionID string, input CheckoutInput) (*Receipt, error) {
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	salesman := strings.TrimSpace(input.Salesman)
	if salesman == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "salesman is required")
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	sale, err := s.sales.AddSale(ctx, sales.NewSale{
		Items:         c.SaleItems(),
		Total:         c.Total().InexactFloat64(),
		PaymentMethod: method,
		Salesman:      salesman,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		// The sale is already submitted; a stale cart is left for the operator to clear.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithSaleID(ctx, sale.ID), "checkout: clear cart failed: "+err.Error())
		}
	}

	return &Receipt{
		ID:            sale.ID,
		OrderID:       sale.OrderID,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		Salesman:      sale.Salesman,
		Items:         sale.Items,
		SubmittedAt:   s.now().UTC(),
	}, nil
}

func (s *service) mutate(ctx context.Context, sessionID string, fn func(*Cart) bool) (*View, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !fn(c) {
		return newView(c), nil
	}
	if err := s.repo.Save(ctx, sessionID, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return newView(c), nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "register session is required")
	}
	c, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func newView(c *Cart) *View {
	items := make([]ViewItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, ViewItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal().InexactFloat64(),
		})
	}
	return &View{
		Items:     items,
		ItemCount: c.ItemCount(),
		Total:     c.Total().InexactFloat64(),
	}
}

var _ ProductLookup = (*catalog.Catalog)(nil)
