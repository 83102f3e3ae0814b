// Package extractor implements the Content Extractor Client (§2 component
// 3): it turns a file blob into plain text by delegating to an external
// extraction backend, fronted by an on-disk content-addressed cache keyed
// by the SHA-256 of the blob, with negative caching for extraction results
// that come back empty.
//
// The cache file's shape (one small file per cached entry, under a
// directory root) is adapted from the teacher pack's local persistent
// cache pattern (calvinalkan-agent-task's mtime-keyed ticket cache),
// substituted here for a content-hash key since the cache must survive the
// file being renamed or its attachment URI changing, not just its mtime.
package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/evalgo/semindex/apperr"
	"github.com/evalgo/semindex/retry"
	"github.com/evalgo/semindex/telemetry"
)

// DefaultMaxFileSize is the §4.3 default cap (200 MiB) above which an
// attachment is indexed without content, logged as FileTooLarge.
const DefaultMaxFileSize = 200 * 1024 * 1024

// Client extracts text from files, caching results on disk.
type Client struct {
	BaseURL     string
	CacheDir    string
	MaxFileSize int64
	httpClient  *http.Client
}

// New constructs an extractor client backed by cacheDir. maxFileSize <= 0
// falls back to DefaultMaxFileSize.
func New(baseURL, cacheDir string, maxFileSize int64) (*Client, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("extractor: creating cache dir: %w", err)
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		CacheDir:    cacheDir,
		MaxFileSize: maxFileSize,
		httpClient:  &http.Client{},
	}, nil
}

func (c *Client) cachePath(hash string) string {
	return filepath.Join(c.CacheDir, hash)
}

// Extract reads the file at path, enforces the size cap, and returns its
// extracted text, using the on-disk content-addressed cache. An empty
// extraction result is cached and returned as "" on subsequent calls
// without contacting the backend (negative caching).
func (c *Client) Extract(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		telemetry.Component("extractor").WithField("path", path).Warn("attachment file missing")
		return "", apperr.New(apperr.FileMissing, "extractor.Extract", err)
	}
	if info.Size() > c.MaxFileSize {
		telemetry.Component("extractor").WithFields(map[string]interface{}{
			"path": path,
			"size": humanize.Bytes(uint64(info.Size())),
			"max":  humanize.Bytes(uint64(c.MaxFileSize)),
		}).Warn("attachment exceeds maximum file size, indexing without content")
		return "", apperr.New(apperr.FileTooLarge, "extractor.Extract", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.New(apperr.FileMissing, "extractor.Extract", err)
	}

	hash := sha256.Sum256(data)
	hexHash := hex.EncodeToString(hash[:])

	if cached, hit, err := c.readCache(hexHash); err != nil {
		return "", err
	} else if hit {
		return cached, nil
	}

	text, err := c.callBackend(ctx, filepath.Base(path), data)
	if err != nil {
		return "", err
	}

	if err := c.writeCache(hexHash, text); err != nil {
		telemetry.Component("extractor").WithError(err).Warn("failed to persist extraction cache entry")
	}
	return text, nil
}

func (c *Client) readCache(hash string) (string, bool, error) {
	data, err := os.ReadFile(c.cachePath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("extractor: reading cache: %w", err)
	}
	return string(data), true, nil
}

func (c *Client) writeCache(hash, text string) error {
	return os.WriteFile(c.cachePath(hash), []byte(text), 0o644)
}

func (c *Client) callBackend(ctx context.Context, filename string, data []byte) (string, error) {
	var text string
	err := retry.Do(ctx, "extractor.callBackend", func() error {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		if err := mw.Close(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.New(apperr.Transient, "extractor.callBackend", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return apperr.New(apperr.Transient, "extractor.callBackend", fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return apperr.New(apperr.BadRequest, "extractor.callBackend", fmt.Errorf("status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperr.New(apperr.Transient, "extractor.callBackend", err)
		}
		text = string(body)
		return nil
	})
	return text, err
}
