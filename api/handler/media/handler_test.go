package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/photo-relay/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMedia(t *testing.T) (*gin.Engine, *storage.LocalStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := NewHandler(storage.NewFactoryWithProvider("local", local))
	router := gin.New()
	router.GET("/media/*path", h.ServeMedia)
	router.HEAD("/media/*path", h.ServeMedia)
	return router, local
}

func TestServeMedia_ExistingFile(t *testing.T) {
	router, local := setupMedia(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	require.NoError(t, local.SaveWithContext(context.Background(), "photos/dot.png", bytes.NewReader(data)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/photos/dot.png", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())
}

func TestServeMedia_RangeRequest(t *testing.T) {
	router, local := setupMedia(t)
	require.NoError(t, local.SaveWithContext(context.Background(), "photos/blob.bin", bytes.NewReader([]byte("0123456789"))))

	req := httptest.NewRequest(http.MethodGet, "/media/photos/blob.bin", nil)
	req.Header.Set("Range", "bytes=2-4")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "234", w.Body.String())
}

func TestServeMedia_NotFound(t *testing.T) {
	router, _ := setupMedia(t)

	for _, p := range []string{
		"/media/photos/missing.jpg",
		"/media/photos",
		"/media/",
		"/media/..%2F..%2Fetc%2Fpasswd",
		"/media/photos/../../secret",
	} {
		t.Run(p, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
			if w.Code == http.StatusMovedPermanently || w.Code == http.StatusTemporaryRedirect {
				return
			}
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.JSONEq(t, `{"detail":"Not found."}`, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
