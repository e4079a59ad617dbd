// Package notify delivers notices: images go to the public image host,
// the message goes to the chat channel.
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultImgbbEndpoint = "https://api.imgbb.com/1/upload"

// ImgbbUploader hosts page images on imgbb and returns their public
// URLs for embedding in chat messages.
type ImgbbUploader struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewImgbbUploader builds an uploader. endpoint overrides the API URL
// for tests; empty means the real service.
func NewImgbbUploader(apiKey, endpoint string, logger *zap.Logger) *ImgbbUploader {
	if endpoint == "" {
		endpoint = defaultImgbbEndpoint
	}
	return &ImgbbUploader{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts one image and returns its hosted URL.
func (u *ImgbbUploader) Upload(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	form := url.Values{}
	form.Set("key", u.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed imgbbResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", fmt.Errorf("upload rejected: %s", truncate(body, 200))
	}
	return parsed.Data.URL, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
