// Package imagestore talks to the external image CDN service where blog
// cover images are uploaded, and builds the transformed delivery URLs.
package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
)

// deliveryTransformation requests an optimized variant: auto quality, webp,
// width capped at 1280px.
const deliveryTransformation = "tr:q-auto,f-webp,w-1280"

type Client struct {
	uploadURL   string
	urlEndpoint string
	privateKey  string
	httpClient  *http.Client
}

type UploadResult struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	FilePath string `json:"filePath"`
}

func NewClient(
	uploadURL, urlEndpoint, privateKey string,
	httpClient *http.Client,
) *Client {
	return &Client{
		uploadURL:   uploadURL,
		urlEndpoint: strings.TrimSuffix(urlEndpoint, "/"),
		privateKey:  privateKey,
		httpClient:  httpClient,
	}
}

// Upload pushes the image bytes to the CDN and returns the stored file path,
// which is later fed to TransformedURL.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imagestore.Upload")
	span.SetAttributes(attribute.String("file.name", fileName))
	span.SetAttributes(attribute.Int("file.size", len(data)))
	defer span.End()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("fileName", fileName); err != nil {
		return "", fmt.Errorf("write file name field: %w", err)
	}
	if err := mw.WriteField("folder", "/blogs"); err != nil {
		return "", fmt.Errorf("write folder field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	// the image service authenticates with the private key as basic auth user
	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("upload request: %s", err))
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, fmt.Sprintf("upload status: %d", resp.StatusCode))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, respBytes)
	}

	var result UploadResult
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal upload response: %w", err)
	}
	if result.FilePath == "" {
		return "", fmt.Errorf("upload response without file path: %s", respBytes)
	}

	return result.FilePath, nil
}

// TransformedURL builds the public delivery URL for an uploaded file path.
func (c *Client) TransformedURL(filePath string) string {
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}
	return c.urlEndpoint + "/" + deliveryTransformation + filePath
}
