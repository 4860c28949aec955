package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soukly/agentcore/core"
)

func sellerDispatcher() (*Dispatcher, *MemCatalog) {
	catalog := NewMemCatalog()
	return NewDispatcher(NewRegistry(SellerTools(catalog)...), nil), catalog
}

func TestCreateProductDefaults(t *testing.T) {
	d, _ := sellerDispatcher()

	res := d.Execute(context.Background(), "seller_create_product",
		map[string]any{"name": "Running Shoes", "price": 49.9},
		Trusted{SellerID: "s1"})

	require.Equal(t, core.ToolOK, res.Status)
	product := res.Data["product"].(map[string]any)
	assert.Equal(t, "Running Shoes", product["name"])
	assert.Equal(t, 49.9, product["price"])
	assert.Equal(t, defaultStock, product["stock_quantity"])
	assert.Equal(t, defaultCategoryID, product["category_id"])
	assert.NotEmpty(t, product["id"])
}

func TestCreateProductRequiresNameAndPrice(t *testing.T) {
	d, _ := sellerDispatcher()

	res := d.Execute(context.Background(), "seller_create_product",
		map[string]any{"description": "no name, no price"},
		Trusted{SellerID: "s1"})

	require.Equal(t, core.ToolMissingFields, res.Status)
	assert.Equal(t, []string{"name", "price"}, res.Missing)
}

func TestListProductsScopedToSeller(t *testing.T) {
	d, _ := sellerDispatcher()
	ctx := context.Background()

	for _, c := range []struct{ seller, name string }{
		{"s1", "A"}, {"s1", "B"}, {"s2", "C"},
	} {
		res := d.Execute(ctx, "seller_create_product",
			map[string]any{"name": c.name, "price": 1.0}, Trusted{SellerID: c.seller})
		require.Equal(t, core.ToolOK, res.Status)
	}

	res := d.Execute(ctx, "seller_products", nil, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, res.Status)
	assert.Equal(t, 2, res.Data["count"])
}

func TestUpdateAndDeleteEnforceOwnership(t *testing.T) {
	d, _ := sellerDispatcher()
	ctx := context.Background()

	created := d.Execute(ctx, "seller_create_product",
		map[string]any{"name": "A", "price": 5.0}, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, created.Status)
	productID := created.Data["product"].(map[string]any)["id"].(string)

	// Another seller cannot touch it.
	res := d.Execute(ctx, "seller_update_price",
		map[string]any{"product_id": productID, "price": 9.0}, Trusted{SellerID: "s2"})
	assert.Equal(t, core.ToolError, res.Status)

	res = d.Execute(ctx, "seller_delete_product",
		map[string]any{"product_id": productID}, Trusted{SellerID: "s2"})
	assert.Equal(t, core.ToolError, res.Status)

	// The owner can.
	res = d.Execute(ctx, "seller_update_price",
		map[string]any{"product_id": productID, "price": 9.0}, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, res.Status)
	assert.Equal(t, 9.0, res.Data["product"].(map[string]any)["price"])

	res = d.Execute(ctx, "seller_update_stock",
		map[string]any{"product_id": productID, "stock_quantity": "25"}, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, res.Status)
	assert.Equal(t, 25, res.Data["product"].(map[string]any)["stock_quantity"])

	res = d.Execute(ctx, "seller_delete_product",
		map[string]any{"product_id": productID}, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, res.Status)
	assert.Equal(t, productID, res.Data["deleted"])
}

func TestDashboardAggregates(t *testing.T) {
	d, _ := sellerDispatcher()
	ctx := context.Background()

	d.Execute(ctx, "seller_create_product",
		map[string]any{"name": "A", "price": 10.0, "stock_quantity": 2}, Trusted{SellerID: "s1"})
	d.Execute(ctx, "seller_create_product",
		map[string]any{"name": "B", "price": 5.0, "stock_quantity": 4}, Trusted{SellerID: "s1"})

	res := d.Execute(ctx, "seller_dashboard", nil, Trusted{SellerID: "s1"})
	require.Equal(t, core.ToolOK, res.Status)

	dash := res.Data["dashboard"].(map[string]any)
	assert.Equal(t, 2, dash["product_count"])
	assert.Equal(t, 6, dash["total_stock"])
	assert.Equal(t, 10.0*2+5.0*4, dash["inventory_value"])
}
