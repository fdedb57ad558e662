package provider

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	// Generated images arrive as PNG or JPEG depending on the provider.
	_ "image/jpeg"
	_ "image/png"

	"github.com/sethvargo/go-retry"
)

// downloadAttempts bounds retries for transient download failures; a
// generated-image URL is short-lived, so there is no point in a long backoff.
const downloadAttempts = 3

// DownloadImage fetches url and decodes it as a raster image. Transient
// failures (transport errors, 5xx) are retried with fibonacci backoff;
// client errors fail immediately.
func (c *OpenAI) DownloadImage(ctx context.Context, url string) (image.Image, error) {
	var img image.Image

	backoff := retry.WithMaxRetries(downloadAttempts, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("image download: http %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("image download: http %d", resp.StatusCode)
		}

		decoded, _, err := image.Decode(resp.Body)
		if err != nil {
			return fmt.Errorf("decode downloaded image: %w", err)
		}
		img = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
