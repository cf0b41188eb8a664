package main

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const qrImageSize = 150

// QRGenerator renders a URL as a scannable PNG image.
type QRGenerator interface {
	Generate(target string) ([]byte, error)
}

// ChartQRClient asks a remote chart-image endpoint to render the QR code
// and falls back to encoding it locally when the endpoint is unreachable,
// slow, or not configured.
type ChartQRClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewChartQRClient creates a QR client for the given chart endpoint. An
// empty endpoint disables the remote path entirely.
func NewChartQRClient(endpoint string) *ChartQRClient {
	return &ChartQRClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

func (c *ChartQRClient) Generate(target string) ([]byte, error) {
	if c.endpoint != "" {
		image, err := c.fetchRemote(target)
		if err == nil {
			return image, nil
		}
		slog.Warn("Remote QR rendering failed, encoding locally", "error", err)
	}
	return encodeLocalQR(target)
}

func (c *ChartQRClient) fetchRemote(target string) ([]byte, error) {
	chartURL := fmt.Sprintf("%s?chs=%dx%d&cht=qr&chl=%s",
		c.endpoint, qrImageSize, qrImageSize, url.QueryEscape(target))

	resp, err := c.httpClient.Get(chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart endpoint returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart response: %w", err)
	}
	return image, nil
}

func encodeLocalQR(target string) ([]byte, error) {
	code, err := qr.Encode(target, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	code, err = barcode.Scale(code, qrImageSize, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to render QR code as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
