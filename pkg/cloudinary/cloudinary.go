// Package cloudinary stores gallery images on Cloudinary.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/pkg/errors"
)

// Delivery transformation applied to every gallery image.
const (
	imageEager = "q_auto,f_auto,w_1600,c_limit"
	ImageWidth = 1600
)

var eagerAsyncFalse = false

type Client struct {
	cloudName string
	uploader  *uploader.API
}

// NewClient returns nil, nil when credentials are missing so callers can
// run with gallery uploads disabled.
func NewClient(cloudName, apiKey, apiSecret string) (*Client, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, nil
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary config")
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary uploader")
	}
	return &Client{cloudName: cloudName, uploader: up}, nil
}

// Upload stores r under folder and returns the optimized delivery URL.
func (c *Client) Upload(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	result, err := c.uploader.Upload(ctx, r, uploader.UploadParams{
		Folder:     folder,
		PublicID:   PublicID(name),
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s", name)
	}
	if result.Error.Message != "" {
		return "", errors.Errorf("upload %s: %s", name, result.Error.Message)
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	return OptimizedImageURL(c.cloudName, result.PublicID, ImageWidth), nil
}

// PublicID strips the extension and any characters Cloudinary rejects.
func PublicID(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func OptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_limit/%s",
		cloudName, width, publicID)
}
