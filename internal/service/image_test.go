package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/datemeal/backend/internal/types"
)

func TestSelectBestImage(t *testing.T) {
	t.Run("should prefer mid-sized images", func(t *testing.T) {
		best, ok := SelectBestImage([]ImageResult{
			{ContentURL: "https://a.example.com/icon.png", Width: 64, Height: 64},
			{ContentURL: "https://a.example.com/banner.jpg", Width: 3000, Height: 800},
			{ContentURL: "https://a.example.com/good.jpg", Width: 1024, Height: 683},
		})
		require.True(t, ok)
		assert.Equal(t, "https://a.example.com/good.jpg", best.ContentURL)
	})

	t.Run("should fall back to the first usable image", func(t *testing.T) {
		best, ok := SelectBestImage([]ImageResult{
			{ContentURL: "data:image/png;base64,AAAA", Width: 800, Height: 600},
			{ContentURL: "https://a.example.com/small.jpg", Width: 300, Height: 200},
			{ContentURL: "https://a.example.com/tiny.jpg", Width: 100, Height: 100},
		})
		require.True(t, ok)
		assert.Equal(t, "https://a.example.com/small.jpg", best.ContentURL)
	})

	t.Run("should report nothing usable", func(t *testing.T) {
		_, ok := SelectBestImage(nil)
		assert.False(t, ok)
		_, ok = SelectBestImage([]ImageResult{{ContentURL: ""}})
		assert.False(t, ok)
	})
}

func TestPlaceholderImageURL(t *testing.T) {
	assert.Equal(t, "https://source.unsplash.com/featured/?italian,restaurant,food", PlaceholderImageURL("Italian"))
	assert.Equal(t, "https://source.unsplash.com/featured/?new,american,restaurant,food", PlaceholderImageURL("New American"))
	assert.Equal(t, "https://source.unsplash.com/featured/?food,restaurant,food", PlaceholderImageURL(""))
	assert.True(t, IsHTTPURL(PlaceholderImageURL("Vegetarian/Vegan")))
}

func TestImageGrounder_Ground(t *testing.T) {
	lilia := types.GroundedRestaurant{CandidateStub: types.CandidateStub{Name: "Lilia", Cuisine: "Italian", Neighborhood: "Williamsburg"}}

	t.Run("should use the primary query", func(t *testing.T) {
		search := &fakeSearch{images: goodImages}
		url, err := NewImageGrounder(search, nil, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")

		require.NoError(t, err)
		assert.Equal(t, "https://images.example.com/photo.jpg", url)
		assert.Equal(t, []string{"Lilia restaurant Williamsburg food interior"}, search.queries)
	})

	t.Run("should try the generic query when the primary finds nothing", func(t *testing.T) {
		search := &fakeSearch{images: func(q string) ([]ImageResult, error) {
			if strings.HasPrefix(q, "Lilia") {
				return nil, nil
			}
			return []ImageResult{{ContentURL: "https://images.example.com/generic.jpg"}}, nil
		}}
		url, err := NewImageGrounder(search, nil, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")

		require.NoError(t, err)
		assert.Equal(t, "https://images.example.com/generic.jpg", url)
		assert.Equal(t, "Italian restaurant food NYC", search.queries[1])
	})

	t.Run("should fall back to a placeholder", func(t *testing.T) {
		search := &fakeSearch{}
		url, err := NewImageGrounder(search, nil, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")

		assert.ErrorIs(t, err, ErrSearchUnavailable)
		assert.Equal(t, PlaceholderImageURL("Italian"), url)
		assert.Len(t, search.queries, 2)
	})

	t.Run("should mirror found images but keep the original on mirror failure", func(t *testing.T) {
		search := &fakeSearch{images: goodImages}

		ok := mirrorFunc(func(ctx context.Context, u string) (string, error) { return "https://bucket.example.com/x.jpg", nil })
		url, err := NewImageGrounder(search, ok, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example.com/x.jpg", url)

		broken := mirrorFunc(func(ctx context.Context, u string) (string, error) { return "", errors.New("denied") })
		url, err = NewImageGrounder(search, broken, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")
		require.NoError(t, err)
		assert.Equal(t, "https://images.example.com/photo.jpg", url)
	})

	t.Run("should never mirror placeholders", func(t *testing.T) {
		called := false
		mirror := mirrorFunc(func(ctx context.Context, u string) (string, error) {
			called = true
			return u, nil
		})
		_, _ = NewImageGrounder(&fakeSearch{}, mirror, zaptest.NewLogger(t)).Ground(context.Background(), lilia, "NYC")
		assert.False(t, called)
	})
}

type mirrorFunc func(ctx context.Context, imageURL string) (string, error)

func (f mirrorFunc) Mirror(ctx context.Context, imageURL string) (string, error) {
	return f(ctx, imageURL)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func newTestMirror(t *testing.T, putter *fakePutter) *S3ImageMirror {
	return &S3ImageMirror{
		uploader:  putter,
		bucket:    "datemeal-images",
		publicURL: func(key string) string { return "https://datemeal-images.s3.amazonaws.com/" + key },
		client:    &http.Client{Timeout: 2 * time.Second},
		logger:    zaptest.NewLogger(t),
	}
}

func TestS3ImageMirror_Mirror(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG fake"))
		case "/huge.png":
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Content-Length", strconv.Itoa(maxImageBytes+1))
			_, _ = w.Write(make([]byte, maxImageBytes+1))
		case "/streamed.png":
			w.Header().Set("Content-Type", "image/png")
			w.(http.Flusher).Flush()
			_, _ = w.Write(make([]byte, maxImageBytes+1))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	t.Run("should upload under restaurant-images", func(t *testing.T) {
		putter := &fakePutter{}
		url, err := newTestMirror(t, putter).Mirror(context.Background(), server.URL+"/photo.png")

		require.NoError(t, err)
		require.NotNil(t, putter.input)
		assert.Equal(t, "datemeal-images", *putter.input.Bucket)
		assert.True(t, strings.HasPrefix(*putter.input.Key, "restaurant-images/"))
		assert.True(t, strings.HasSuffix(*putter.input.Key, ".png"))
		assert.Equal(t, "image/png", *putter.input.ContentType)
		assert.Equal(t, []byte("\x89PNG fake"), putter.body)
		assert.Equal(t, "https://datemeal-images.s3.amazonaws.com/"+*putter.input.Key, url)
	})

	t.Run("should reject non-images and failed downloads", func(t *testing.T) {
		for _, path := range []string{"/page", "/missing.jpg"} {
			putter := &fakePutter{}
			_, err := newTestMirror(t, putter).Mirror(context.Background(), server.URL+path)
			assert.Error(t, err, path)
			assert.Nil(t, putter.input, path)
		}
	})

	t.Run("should reject oversized images instead of truncating them", func(t *testing.T) {
		for _, path := range []string{"/huge.png", "/streamed.png"} {
			putter := &fakePutter{}
			_, err := newTestMirror(t, putter).Mirror(context.Background(), server.URL+path)
			assert.ErrorContains(t, err, "image too large", path)
			assert.Nil(t, putter.input, path)
		}
	})

	t.Run("should surface upload errors", func(t *testing.T) {
		putter := &fakePutter{err: errors.New("access denied")}
		_, err := newTestMirror(t, putter).Mirror(context.Background(), server.URL+"/photo.png")
		assert.ErrorContains(t, err, "failed to upload to S3")
	})
}
