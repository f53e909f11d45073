package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demoBytes = []byte("HL2DEMO\x00 not a real demo, but enough bytes to round trip")

func compressed(t *testing.T) map[string][]byte {
	t.Helper()
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(demoBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll(demoBytes, nil)
	require.NoError(t, enc.Close())

	return map[string][]byte{
		"/demos/match.dem.gz":  gz.Bytes(),
		"/demos/match.dem.zst": zst,
		"/demos/match.dem":     demoBytes,
	}
}

func TestDownloadDemo(t *testing.T) {
	files := compressed(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	for p := range files {
		t.Run(p, func(t *testing.T) {
			dir := t.TempDir()
			out, err := DownloadDemo(context.Background(), srv.Client(), srv.URL+p, dir)
			require.NoError(t, err)
			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, demoBytes, got)
			assert.Equal(t, "match.dem", DemoName(srv.URL+p))
		})
	}

	_, err := DownloadDemo(context.Background(), srv.Client(), srv.URL+"/demos/missing.dem", t.TempDir())
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestDemoName(t *testing.T) {
	assert.Equal(t, "g2-vs-heroic-m1-ancient.dem", DemoName("https://cdn.example.com/x/g2-vs-heroic-m1-ancient.dem.zst?sig=1"))
	assert.Equal(t, "archive.dem", DemoName("https://cdn.example.com/archive.bz2"))
	assert.Equal(t, "demo.dem", DemoName("https://cdn.example.com/"))
}
