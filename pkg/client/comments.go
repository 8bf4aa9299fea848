package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListComments(ctx context.Context, page, pageSize int) (*Page[Comment], error) {
	q := url.Values{}
	setPage(q, page, pageSize)

	var out Page[Comment]
	if err := c.do(ctx, http.MethodGet, withQuery(c.endpoints.Comments, q), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetComment(ctx context.Context, id uint) (*Comment, error) {
	var out Comment
	if err := c.do(ctx, http.MethodGet, c.endpoints.CommentDetail(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment adds a comment to req.Post, as a reply when req.Parent is set.
func (c *Client) CreateComment(ctx context.Context, req CommentRequest) (*Comment, error) {
	return c.sendComment(ctx, http.MethodPost, c.endpoints.Comments, req, true)
}

func (c *Client) UpdateComment(ctx context.Context, id uint, req CommentRequest) (*Comment, error) {
	return c.sendComment(ctx, http.MethodPatch, c.endpoints.CommentDetail(id), req, false)
}

func (c *Client) DeleteComment(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, c.endpoints.CommentDetail(id), nil, "", nil)
}

func (c *Client) sendComment(ctx context.Context, method, endpoint string, req CommentRequest, create bool) (*Comment, error) {
	var out Comment

	if req.Image == nil && req.File == nil {
		body := map[string]any{}
		if create {
			body["post"] = req.Post
			if req.Parent != nil {
				body["parent"] = *req.Parent
			}
		}
		if req.Text != nil {
			body["text"] = *req.Text
		}
		if err := c.doJSON(ctx, method, endpoint, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	form := newForm()
	if create {
		form.field("post", strconv.FormatUint(uint64(req.Post), 10))
		if req.Parent != nil {
			form.field("parent", strconv.FormatUint(uint64(*req.Parent), 10))
		}
	}
	if req.Text != nil {
		form.field("text", *req.Text)
	}
	form.file("image", req.Image)
	form.file("file", req.File)

	body, contentType, err := form.close()
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, method, endpoint, body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
