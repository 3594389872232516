package rest

import (
	"context"
	"net/http"

	"github.com/opsdeck/opsdeck/internal/store"
)

func (c *Client) MarkRead(ctx context.Context, scopeOrEventID string) error {
	return c.do(ctx, "mark_read", http.MethodPost, "/api/read/"+scopeOrEventID, nil, nil, nil)
}

func (c *Client) FetchReadStatus(ctx context.Context, eventID string) ([]store.UserRef, error) {
	var out struct {
		ReadBy []store.UserRef `json:"readBy"`
	}
	if err := c.doRead(ctx, "fetch_read_status", "/api/messages/"+eventID+"/read-status", nil, &out); err != nil {
		return nil, err
	}
	return out.ReadBy, nil
}

func (c *Client) PostTyping(ctx context.Context, scopeID string, typing bool) error {
	body := map[string]any{
		"scopeId": scopeID,
		"typing":  typing,
	}
	return c.do(ctx, "post_typing", http.MethodPost, "/api/typing", nil, body, nil)
}
