package tools

import (
	"context"

	"github.com/soukly/agentcore/llm"
)

// Until the model asks for them explicitly, create_product falls back to
// these.
const (
	defaultCategoryID = 2
	defaultStock      = 10
)

// SellerTools returns the full seller tool family over the given catalog.
func SellerTools(catalog Catalog) []Tool {
	return []Tool{
		&createProductTool{catalog: catalog},
		&listProductsTool{catalog: catalog},
		&updatePriceTool{catalog: catalog},
		&updateStockTool{catalog: catalog},
		&deleteProductTool{catalog: catalog},
		&dashboardTool{catalog: catalog},
		&calculatorTool{},
	}
}

func productMap(p *Product) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"name":           p.Name,
		"description":    p.Description,
		"price":          p.Price,
		"stock_quantity": p.Stock,
		"category_id":    p.CategoryID,
	}
}

type createProductTool struct {
	catalog Catalog
}

func (t *createProductTool) Name() string { return "seller_create_product" }

func (t *createProductTool) RequiredFields() []string { return []string{"name", "price"} }

func (t *createProductTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "Create a new product in the seller's catalog. Requires name and price.",
		InputSchema: ObjectSchema(map[string]any{
			"name":           StringProperty("Product name"),
			"description":    StringProperty("Product description"),
			"price":          NumberProperty("Product price"),
			"stock_quantity": IntegerProperty("Initial stock quantity"),
			"category_id":    IntegerProperty("Category identifier"),
		}, "name", "price"),
	}
}

func (t *createProductTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	price, err := args.Float("price")
	if err != nil {
		return nil, err
	}
	stock := defaultStock
	if args.Present("stock_quantity") {
		if stock, err = args.Int("stock_quantity"); err != nil {
			return nil, err
		}
	}
	category := defaultCategoryID
	if args.Present("category_id") {
		if category, err = args.Int("category_id"); err != nil {
			return nil, err
		}
	}

	p, err := t.catalog.Create(ctx, Product{
		SellerID:    args.String("seller_id"),
		Name:        args.String("name"),
		Description: args.String("description"),
		Price:       price,
		Stock:       stock,
		CategoryID:  category,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"product": productMap(p)}, nil
}

type listProductsTool struct {
	catalog Catalog
}

func (t *listProductsTool) Name() string { return "seller_products" }

func (t *listProductsTool) RequiredFields() []string { return nil }

func (t *listProductsTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "List all products in the seller's catalog.",
		InputSchema: ObjectSchema(map[string]any{}),
	}
}

func (t *listProductsTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	products, err := t.catalog.ListBySeller(ctx, args.String("seller_id"))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(products))
	for i := range products {
		items = append(items, productMap(&products[i]))
	}
	return map[string]any{"products": items, "count": len(items)}, nil
}

type updatePriceTool struct {
	catalog Catalog
}

func (t *updatePriceTool) Name() string { return "seller_update_price" }

func (t *updatePriceTool) RequiredFields() []string { return []string{"product_id", "price"} }

func (t *updatePriceTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "Change the price of an existing product.",
		InputSchema: ObjectSchema(map[string]any{
			"product_id": StringProperty("Product identifier"),
			"price":      NumberProperty("New price"),
		}, "product_id", "price"),
	}
}

func (t *updatePriceTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	price, err := args.Float("price")
	if err != nil {
		return nil, err
	}
	p, err := t.catalog.UpdatePrice(ctx, args.String("seller_id"), args.String("product_id"), price)
	if err != nil {
		return nil, err
	}
	return map[string]any{"product": productMap(p)}, nil
}

type updateStockTool struct {
	catalog Catalog
}

func (t *updateStockTool) Name() string { return "seller_update_stock" }

func (t *updateStockTool) RequiredFields() []string {
	return []string{"product_id", "stock_quantity"}
}

func (t *updateStockTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "Change the stock quantity of an existing product.",
		InputSchema: ObjectSchema(map[string]any{
			"product_id":     StringProperty("Product identifier"),
			"stock_quantity": IntegerProperty("New stock quantity"),
		}, "product_id", "stock_quantity"),
	}
}

func (t *updateStockTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	stock, err := args.Int("stock_quantity")
	if err != nil {
		return nil, err
	}
	p, err := t.catalog.UpdateStock(ctx, args.String("seller_id"), args.String("product_id"), stock)
	if err != nil {
		return nil, err
	}
	return map[string]any{"product": productMap(p)}, nil
}

type deleteProductTool struct {
	catalog Catalog
}

func (t *deleteProductTool) Name() string { return "seller_delete_product" }

func (t *deleteProductTool) RequiredFields() []string { return []string{"product_id"} }

func (t *deleteProductTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "Remove a product from the seller's catalog.",
		InputSchema: ObjectSchema(map[string]any{
			"product_id": StringProperty("Product identifier"),
		}, "product_id"),
	}
}

func (t *deleteProductTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	productID := args.String("product_id")
	if err := t.catalog.Delete(ctx, args.String("seller_id"), productID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": productID}, nil
}

type dashboardTool struct {
	catalog Catalog
}

func (t *dashboardTool) Name() string { return "seller_dashboard" }

func (t *dashboardTool) RequiredFields() []string { return nil }

func (t *dashboardTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: "Summarize the seller's catalog: product count, total stock, inventory value.",
		InputSchema: ObjectSchema(map[string]any{}),
	}
}

func (t *dashboardTool) Execute(ctx context.Context, args Args) (map[string]any, error) {
	products, err := t.catalog.ListBySeller(ctx, args.String("seller_id"))
	if err != nil {
		return nil, err
	}
	var totalStock int
	var inventoryValue float64
	for _, p := range products {
		totalStock += p.Stock
		inventoryValue += p.Price * float64(p.Stock)
	}
	return map[string]any{
		"dashboard": map[string]any{
			"product_count":   len(products),
			"total_stock":     totalStock,
			"inventory_value": inventoryValue,
		},
	}, nil
}
