package scrape

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DemoName derives the .dem file name of a demo archive URL:
// ".../g2-vs-heroic-m1-ancient.dem.zst" becomes "g2-vs-heroic-m1-ancient.dem".
func DemoName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	name = path.Base(name)
	for _, ext := range []string{".gz", ".bz2", ".zst"} {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "/" || name == "." {
		name = "demo"
	}
	if !strings.HasSuffix(name, ".dem") {
		name += ".dem"
	}
	return name
}

// DownloadDemo fetches a demo URL into dir, decompressing .bz2, .zst and
// .gz archives (or a gzip Content-Encoding). Returns the written .dem path.
func DownloadDemo(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	outPath := filepath.Join(dir, DemoName(rawURL))
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	archive := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		archive = u.Path
	}

	var src io.Reader = resp.Body
	switch {
	case strings.HasSuffix(archive, ".bz2"):
		src = bzip2.NewReader(resp.Body)
	case strings.HasSuffix(archive, ".zst"):
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			os.Remove(outPath)
			return "", fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	case strings.HasSuffix(archive, ".gz") || resp.Header.Get("Content-Encoding") == "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			os.Remove(outPath)
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("write: %w", err)
	}
	return outPath, nil
}
