package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/wpbridge/pkg/config"
)

func testDownloader(t *testing.T) *Downloader {
	t.Helper()
	cfg := config.Default()
	cfg.WordPress.BaseURL = "https://example.com"
	cfg.Assets.DownloadDir = filepath.Join(t.TempDir(), "images")
	cfg.Assets.StagingDir = filepath.Join(t.TempDir(), "staging")

	d, err := NewDownloader(cfg, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestDownloader_LocalPath(t *testing.T) {
	d := testDownloader(t)

	// Deterministic: the same name always maps to the same path.
	assert.Equal(t, d.LocalPath("My Photo.JPG"), d.LocalPath("My Photo.JPG"))
	assert.Equal(t, "my-photo.jpg", filepath.Base(d.LocalPath("My Photo.JPG")))
	assert.Equal(t, "hero-image.png", filepath.Base(d.LocalPath("Hero_Image.png")))
}

func TestDownloader_EnsureDownloaded(t *testing.T) {
	t.Run("second call for the same destination is a no-op", func(t *testing.T) {
		var transfers atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			transfers.Add(1)
			w.Write([]byte("image-bytes"))
		}))
		defer server.Close()

		d := testDownloader(t)

		first, err := d.EnsureDownloaded(context.Background(), server.URL+"/a.png", "a.png")
		require.NoError(t, err)
		second, err := d.EnsureDownloaded(context.Background(), server.URL+"/a.png", "a.png")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), transfers.Load())

		data, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(data))
	})

	t.Run("concurrent calls collapse into one transfer", func(t *testing.T) {
		var transfers atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			transfers.Add(1)
			w.Write([]byte("image-bytes"))
		}))
		defer server.Close()

		d := testDownloader(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := d.EnsureDownloaded(context.Background(), server.URL+"/b.png", "b.png")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), transfers.Load())
	})

	t.Run("failure leaves no partial file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusInternalServerError)
		}))
		defer server.Close()

		d := testDownloader(t)

		_, err := d.EnsureDownloaded(context.Background(), server.URL+"/c.png", "c.png")
		require.Error(t, err)

		_, statErr := os.Stat(d.LocalPath("c.png"))
		assert.True(t, os.IsNotExist(statErr))

		staged, err := os.ReadDir(d.stagingDir)
		require.NoError(t, err)
		assert.Empty(t, staged)
	})

	t.Run("transport failure is surfaced to the caller", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		d := testDownloader(t)
		_, err := d.EnsureDownloaded(context.Background(), server.URL+"/d.png", "d.png")
		require.Error(t, err)
	})
}

func TestFileNameFromURL(t *testing.T) {
	assert.Equal(t, "photo.jpg", FileNameFromURL("https://example.com/uploads/2024/photo.jpg"))
	assert.Equal(t, "photo.jpg", FileNameFromURL("https://example.com/photo.jpg?w=300"))
}

func TestScheduler(t *testing.T) {
	t.Run("returns the path immediately and downloads in the background", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Write([]byte("image-bytes"))
		}))
		defer server.Close()

		d := testDownloader(t)
		s := NewScheduler(d, zap.NewNop())

		dest := s.Schedule(context.Background(), server.URL+"/e.png", "e.png")
		assert.Equal(t, d.LocalPath("e.png"), dest)

		// Not downloaded yet; the barrier is what guarantees completion.
		_, statErr := os.Stat(dest)
		assert.True(t, os.IsNotExist(statErr))

		close(release)
		s.Wait()

		_, statErr = os.Stat(dest)
		assert.NoError(t, statErr)
	})

	t.Run("failed downloads are logged, not surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer server.Close()

		d := testDownloader(t)
		s := NewScheduler(d, zap.NewNop())

		s.Schedule(context.Background(), server.URL+"/f.png", "f.png")
		s.Wait()

		_, statErr := os.Stat(d.LocalPath("f.png"))
		assert.True(t, os.IsNotExist(statErr))
	})
}
