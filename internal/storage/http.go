package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// HTTP talks to a hosted object storage REST API (Supabase Storage compatible).
// Requests are not retried.
type HTTP struct {
	client *resty.Client
	bucket string
}

func NewHTTP(baseURL, bucket, serviceKey string) *HTTP {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/storage/v1").
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey)

	return &HTTP{client: client, bucket: bucket}
}

func (s *HTTP) objectURL(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	segments := strings.Split(cleaned, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/object/" + url.PathEscape(s.bucket) + "/" + strings.Join(segments, "/"), nil
}

func (s *HTTP) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	u, err := s.objectURL(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data).
		Post(u)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	switch {
	case resp.StatusCode() == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrExists, key)
	case resp.IsError():
		return fmt.Errorf("failed to upload %s: status %d: %s", key, resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *HTTP) Download(ctx context.Context, key string) ([]byte, error) {
	u, err := s.objectURL(key)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	case resp.IsError():
		return nil, fmt.Errorf("failed to download %s: status %d", key, resp.StatusCode())
	}
	return resp.Body(), nil
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

func (s *HTTP) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		k, err := CleanKey(key)
		if err != nil {
			return err
		}
		cleaned = append(cleaned, k)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(removeRequest{Prefixes: cleaned}).
		Delete("/object/" + url.PathEscape(s.bucket))
	if err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to remove objects: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

const listPageSize = 100

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type listEntry struct {
	Name string  `json:"name"`
	ID   *string `json:"id"`
}

// list returns the object keys below folder, descending into sub-folders.
func (s *HTTP) list(ctx context.Context, folder string) ([]string, error) {
	var keys []string
	for offset := 0; ; offset += listPageSize {
		var entries []listEntry
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(listRequest{Prefix: folder, Limit: listPageSize, Offset: offset}).
			SetResult(&entries).
			Post("/object/list/" + url.PathEscape(s.bucket))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", folder, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("failed to list %s: status %d: %s", folder, resp.StatusCode(), resp.String())
		}

		for _, e := range entries {
			key := folder + "/" + e.Name
			if e.ID != nil {
				keys = append(keys, key)
				continue
			}
			nested, err := s.list(ctx, key)
			if err != nil {
				return nil, err
			}
			keys = append(keys, nested...)
		}
		if len(entries) < listPageSize {
			return keys, nil
		}
	}
}

func (s *HTTP) RemovePrefix(ctx context.Context, prefix string) error {
	folder, err := CleanKey(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}
	keys, err := s.list(ctx, folder)
	if err != nil {
		return err
	}
	return s.Remove(ctx, keys...)
}
