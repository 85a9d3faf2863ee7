// Package social launches tokens described by posts on the Moltbook social
// platform.
package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"go.uber.org/zap"
)

// Author is the account that wrote a post.
type Author struct {
	Name string `json:"name"`
}

// Post is the subset of a Moltbook post the launcher reads.
type Post struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  Author `json:"author"`
}

type postResponse struct {
	Post *Post `json:"post"`
}

// Client fetches posts from the Moltbook API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: httpClient, logger: logger.Named("moltbook")}
}

// FetchPost returns the post with id, authenticating with the caller's key.
func (c *Client) FetchPost(ctx context.Context, postID, accessKey string) (*Post, error) {
	var out postResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessKey).
		SetResult(&out).
		Get("/api/v1/posts/" + url.PathEscape(postID))
	if err != nil {
		c.logger.Error("Failed to fetch post", zap.String("post_id", postID), zap.Error(err))
		return nil, apperr.Internal("Failed to fetch post", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, postNotFound()
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, apperr.Validation("Invalid Moltbook key", "The platform rejected the provided moltbook_key")
	case resp.IsError():
		return nil, apperr.Internal("Failed to fetch post",
			fmt.Errorf("unexpected status code: %d", resp.StatusCode()))
	}

	if out.Post == nil {
		return nil, postNotFound()
	}
	if out.Post.ID == "" {
		out.Post.ID = postID
	}
	return out.Post, nil
}

func postNotFound() *apperr.Error {
	return apperr.NotFound("Post not found", "Could not fetch Moltbook post with provided ID")
}
