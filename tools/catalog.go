package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Product is one catalog entry owned by a seller.
type Product struct {
	ID          string  `json:"id"`
	SellerID    string  `json:"seller_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock_quantity"`
	CategoryID  int     `json:"category_id"`
}

// Catalog is the external product-store collaborator the seller tools act
// on. The full e-commerce CRUD lives elsewhere; the tools need only this.
type Catalog interface {
	Create(ctx context.Context, p Product) (*Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Product, error)
	UpdatePrice(ctx context.Context, sellerID, productID string, price float64) (*Product, error)
	UpdateStock(ctx context.Context, sellerID, productID string, stock int) (*Product, error)
	Delete(ctx context.Context, sellerID, productID string) error
}

// MemCatalog is an in-memory Catalog for local runs and tests.
type MemCatalog struct {
	mu       sync.Mutex
	products map[string]Product
	order    []string
}

// NewMemCatalog creates an empty catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{products: make(map[string]Product)}
}

func (c *MemCatalog) Create(ctx context.Context, p Product) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.ID = uuid.New().String()
	c.products[p.ID] = p
	c.order = append(c.order, p.ID)
	return &p, nil
}

func (c *MemCatalog) ListBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Product
	for _, id := range c.order {
		if p, ok := c.products[id]; ok && p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemCatalog) UpdatePrice(ctx context.Context, sellerID, productID string, price float64) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.owned(sellerID, productID)
	if err != nil {
		return nil, err
	}
	p.Price = price
	c.products[productID] = p
	return &p, nil
}

func (c *MemCatalog) UpdateStock(ctx context.Context, sellerID, productID string, stock int) (*Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.owned(sellerID, productID)
	if err != nil {
		return nil, err
	}
	p.Stock = stock
	c.products[productID] = p
	return &p, nil
}

func (c *MemCatalog) Delete(ctx context.Context, sellerID, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.owned(sellerID, productID); err != nil {
		return err
	}
	delete(c.products, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// owned must be called with the lock held.
func (c *MemCatalog) owned(sellerID, productID string) (Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return Product{}, fmt.Errorf("product not found: %s", productID)
	}
	if p.SellerID != sellerID {
		return Product{}, fmt.Errorf("product %s does not belong to seller", productID)
	}
	return p, nil
}
