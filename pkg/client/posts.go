package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListPosts returns one page of posts, newest first unless opts.Ascending.
func (c *Client) ListPosts(ctx context.Context, opts ListPostsOptions) (*Page[Post], error) {
	q := url.Values{}
	if opts.Username != "" {
		q.Set("username", opts.Username)
	}
	if opts.Email != "" {
		q.Set("email", opts.Email)
	}
	if opts.Ascending {
		q.Set("date_order", "asc")
	}
	setPage(q, opts.Page, opts.PageSize)

	var out Page[Post]
	if err := c.do(ctx, http.MethodGet, withQuery(c.endpoints.Posts, q), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPost(ctx context.Context, id uint) (*Post, error) {
	var out Post
	if err := c.do(ctx, http.MethodGet, c.endpoints.PostDetail(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost needs an authenticated context or TokenStore.
func (c *Client) CreatePost(ctx context.Context, req PostRequest) (*Post, error) {
	return c.sendPost(ctx, http.MethodPost, c.endpoints.Posts, req)
}

// UpdatePost applies a partial update (PATCH).
func (c *Client) UpdatePost(ctx context.Context, id uint, req PostRequest) (*Post, error) {
	return c.sendPost(ctx, http.MethodPatch, c.endpoints.PostDetail(id), req)
}

func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, c.endpoints.PostDetail(id), nil, "", nil)
}

// PostComments returns every comment on a post.
func (c *Client) PostComments(ctx context.Context, postID uint) ([]Comment, error) {
	var out []Comment
	if err := c.do(ctx, http.MethodGet, c.endpoints.PostComments(postID), nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) sendPost(ctx context.Context, method, endpoint string, req PostRequest) (*Post, error) {
	var out Post

	if req.Image == nil && req.File == nil {
		body := map[string]any{}
		if req.Text != nil {
			body["text"] = *req.Text
		}
		if err := c.doJSON(ctx, method, endpoint, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	form := newForm()
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

func setPage(q url.Values, page, pageSize int) {
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}
