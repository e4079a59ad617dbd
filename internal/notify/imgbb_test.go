package notify

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImgbbUploader_Success(t *testing.T) {
	t.Parallel()

	image := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "test-key", r.PostFormValue("key"))
		require.Equal(t, base64.StdEncoding.EncodeToString(image), r.PostFormValue("image"))
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/abc/page.png"}}`))
	}))
	defer srv.Close()

	u := NewImgbbUploader("test-key", srv.URL, zap.NewNop())
	got, err := u.Upload(context.Background(), image)
	require.NoError(t, err)
	require.Equal(t, "https://i.ibb.co/abc/page.png", got)
}

func TestImgbbUploader_Rejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	u := NewImgbbUploader("test-key", srv.URL, zap.NewNop())
	_, err := u.Upload(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestImgbbUploader_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	u := NewImgbbUploader("test-key", srv.URL, zap.NewNop())
	_, err := u.Upload(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestImgbbUploader_EmptyImage(t *testing.T) {
	t.Parallel()

	u := NewImgbbUploader("test-key", "http://unused", zap.NewNop())
	_, err := u.Upload(context.Background(), nil)
	require.Error(t, err)
}
