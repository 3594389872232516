package rest

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CreateCall(ctx context.Context, receiverID, kind string) (string, error) {
	body := map[string]string{
		"receiverId": receiverID,
		"kind":       kind,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "create_call", http.MethodPost, "/api/calls", nil, body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) AcceptCall(ctx context.Context, callID string) error {
	return c.do(ctx, "accept_call", http.MethodPost, "/api/calls/"+callID+"/accept", nil, nil, nil)
}

func (c *Client) RejectCall(ctx context.Context, callID string) error {
	return c.do(ctx, "reject_call", http.MethodPost, "/api/calls/"+callID+"/reject", nil, nil, nil)
}

func (c *Client) EndCall(ctx context.Context, callID string) error {
	return c.do(ctx, "end_call", http.MethodPost, "/api/calls/"+callID+"/end", nil, nil, nil)
}

func (c *Client) ListPendingCalls(ctx context.Context, callerID string) ([]string, error) {
	q := url.Values{}
	q.Set("caller", callerID)
	var out struct {
		CallIDs []string `json:"callIds"`
	}
	if err := c.doRead(ctx, "list_pending_calls", "/api/calls/pending", q, &out); err != nil {
		return nil, err
	}
	return out.CallIDs, nil
}
