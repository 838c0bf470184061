package supabase

import (
	"context"
	"net/http"
	"net/url"
)

var returnRepresentation = map[string]string{"Prefer": "return=representation"}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.restURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Select runs a PostgREST read, e.g. query {"id": {"eq.abc"}, "order": {"created_at.desc"}},
// and decodes the JSON array into out.
func (c *Client) Select(ctx context.Context, table string, query url.Values, token string, out any) error {
	body, err := c.do(ctx, http.MethodGet, c.tableURL(table, query), token, nil, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Insert creates rows and decodes the stored representation into out.
func (c *Client) Insert(ctx context.Context, table string, rows any, token string, out any) error {
	body, err := c.do(ctx, http.MethodPost, c.tableURL(table, nil), token, rows, returnRepresentation)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Update patches the rows matched by filter and decodes the result into out.
func (c *Client) Update(ctx context.Context, table string, filter url.Values, patch any, token string, out any) error {
	body, err := c.do(ctx, http.MethodPatch, c.tableURL(table, filter), token, patch, returnRepresentation)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// Delete removes the rows matched by filter.
func (c *Client) Delete(ctx context.Context, table string, filter url.Values, token string) error {
	_, err := c.do(ctx, http.MethodDelete, c.tableURL(table, filter), token, nil, nil)
	return err
}
