package upstream

import (
	"context"

	"hostel-portal/internal/model"
)

func (c *Client) ListStock(ctx context.Context) ([]model.StockItem, error) {
	var items []model.StockItem
	if err := c.get(ctx, "/api/staff/stock", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateStockItem(ctx context.Context, item model.StockItem) (model.StockItem, error) {
	var created model.StockItem
	err := c.postJSON(ctx, "/api/staff/stock", item, &created)
	return created, err
}

func (c *Client) UpdateStockItem(ctx context.Context, id string, item model.StockItem) (model.StockItem, error) {
	var updated model.StockItem
	err := c.putJSON(ctx, "/api/staff/stock/"+id, item, &updated)
	return updated, err
}

func (c *Client) DeleteStockItem(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/staff/stock/"+id)
}
