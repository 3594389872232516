package rest

import (
	"context"
	"net/http"

	"github.com/opsdeck/opsdeck/internal/common/errors"
	"github.com/opsdeck/opsdeck/internal/messaging"
	"github.com/opsdeck/opsdeck/internal/store"
)

func (c *Client) FetchMessages(ctx context.Context, scopeID string, limit int) ([]messaging.Message, error) {
	var out []messaging.Message
	if err := c.doRead(ctx, "fetch_messages", "/api/messages", limitQuery(scopeID, limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostMessage(ctx context.Context, draft store.Draft) (*messaging.Message, error) {
	if c.limiter != nil && !c.limiter.Allow("message") {
		return nil, errors.ActionFailed("sending too fast, slow down", nil)
	}
	var out messaging.Message
	if err := c.do(ctx, "post_message", http.MethodPost, "/api/messages", nil, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, content string) (*messaging.Message, error) {
	body := map[string]string{"content": content}
	var out messaging.Message
	if err := c.do(ctx, "edit_message", http.MethodPatch, "/api/messages/"+messageID, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, "delete_message", http.MethodDelete, "/api/messages/"+messageID, nil, nil, nil)
}

func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	body := map[string]string{"emoji": emoji}
	return c.do(ctx, "add_reaction", http.MethodPost, "/api/messages/"+messageID+"/reactions", nil, body, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, messageID, emoji string) error {
	body := map[string]string{"emoji": emoji}
	return c.do(ctx, "remove_reaction", http.MethodDelete, "/api/messages/"+messageID+"/reactions", nil, body, nil)
}

func (c *Client) PinMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, "pin_message", http.MethodPost, "/api/messages/"+messageID+"/pin", nil, nil, nil)
}

func (c *Client) UnpinMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, "unpin_message", http.MethodDelete, "/api/messages/"+messageID+"/pin", nil, nil, nil)
}

func (c *Client) StarMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, "star_message", http.MethodPost, "/api/messages/"+messageID+"/star", nil, nil, nil)
}

func (c *Client) UnstarMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, "unstar_message", http.MethodDelete, "/api/messages/"+messageID+"/star", nil, nil, nil)
}
