package matchapi

import (
	"context"
	"fmt"
)

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health calls the liveness endpoint of the API.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, c.url(healthPath), &h); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return &h, nil
}
