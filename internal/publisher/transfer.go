package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"

	"reelcast/internal/services"
)

// uploadFile streams the file as multipart field Filedata and returns the
// video id from the response body. The body is assembled from a prebuilt
// header, the file and a trailer so Content-Length is exact.
func (c *Client) uploadFile(ctx context.Context, path, fileName string, size int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Mark(services.ErrValidation, fmt.Errorf("File not found: %s", path))
	}
	defer file.Close()

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="Filedata"; filename="%s"`, escapeQuotes(fileName)))
	partHeader.Set("Content-Type", "video/mp4")
	if _, err := mw.CreatePart(partHeader); err != nil {
		return "", fmt.Errorf("build multipart header: %w", err)
	}
	tail := "\r\n--" + mw.Boundary() + "--\r\n"

	body := io.MultiReader(bytes.NewReader(head.Bytes()), io.LimitReader(file, size), strings.NewReader(tail))
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(url.Values{}), body)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(head.Len()) + size + int64(len(tail))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.transfer.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Mark(services.ErrTransient, fmt.Errorf("Failed to upload video: %w", err))
	}
	defer resp.Body.Close()

	text := strings.TrimSpace(readBody(resp))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Mark(services.ErrExternalTool, fmt.Errorf("Failed to upload video - status %d", resp.StatusCode))
	}
	if text == "" {
		return "", services.Mark(services.ErrProtocol, errors.New("Failed to upload video - no video ID returned"))
	}
	return text, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
