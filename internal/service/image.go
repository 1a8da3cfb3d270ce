package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/types"
)

const (
	imageResultCount = 5
	minImageWidth    = 600
	maxImageWidth    = 1200
	minImageHeight   = 400
	maxImageBytes    = 10 << 20
)

// ImageMirror copies a remote image somewhere we control and returns the new URL
type ImageMirror interface {
	Mirror(ctx context.Context, imageURL string) (string, error)
}

// ImageGrounder finds a photo for a candidate
type ImageGrounder struct {
	search ImageSearcher
	mirror ImageMirror
	logger *zap.Logger
}

// NewImageGrounder creates a new ImageGrounder. mirror may be nil.
func NewImageGrounder(search ImageSearcher, mirror ImageMirror, logger *zap.Logger) *ImageGrounder {
	return &ImageGrounder{
		search: search,
		mirror: mirror,
		logger: logger.Named("image"),
	}
}

// Ground returns an image URL for r. It tries a specific query, then a
// generic cuisine query, then a placeholder, so the URL is never empty. The
// returned error reports why the search stages failed, if they did.
func (g *ImageGrounder) Ground(ctx context.Context, r types.GroundedRestaurant, city string) (string, error) {
	loc := r.Neighborhood
	if loc == "" {
		loc = city
	}

	primary := strings.TrimSpace(fmt.Sprintf("%s restaurant %s food interior", r.Name, loc))
	imageURL, primaryErr := g.searchBest(ctx, primary)
	if primaryErr == nil {
		return g.mirrored(ctx, r.Name, imageURL), nil
	}
	g.logger.Debug("primary image search failed",
		zap.String("candidate", r.Name),
		zap.Error(primaryErr))

	secondary := strings.TrimSpace(fmt.Sprintf("%s restaurant food %s", r.Cuisine, city))
	imageURL, secondaryErr := g.searchBest(ctx, secondary)
	if secondaryErr == nil {
		return g.mirrored(ctx, r.Name, imageURL), nil
	}

	return PlaceholderImageURL(r.Cuisine), fmt.Errorf("primary: %v; secondary: %w", primaryErr, secondaryErr)
}

func (g *ImageGrounder) searchBest(ctx context.Context, query string) (string, error) {
	results, err := g.search.SearchImages(ctx, query, imageResultCount)
	if err != nil {
		return "", err
	}
	best, ok := SelectBestImage(results)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoResults, query)
	}
	return best.ContentURL, nil
}

func (g *ImageGrounder) mirrored(ctx context.Context, name, imageURL string) string {
	if g.mirror == nil {
		return imageURL
	}
	mirrored, err := g.mirror.Mirror(ctx, imageURL)
	if err != nil {
		g.logger.Warn("failed to mirror image, keeping original URL",
			zap.String("candidate", name),
			zap.Error(err))
		return imageURL
	}
	return mirrored
}

// SelectBestImage prefers images 600-1200px wide and at least 400px tall,
// falling back to the first usable result. Results without an http(s) URL
// are ignored.
func SelectBestImage(results []ImageResult) (ImageResult, bool) {
	var first *ImageResult
	for i := range results {
		img := results[i]
		if !IsHTTPURL(img.ContentURL) {
			continue
		}
		if img.Width >= minImageWidth && img.Width <= maxImageWidth && img.Height >= minImageHeight {
			return img, true
		}
		if first == nil {
			first = &results[i]
		}
	}
	if first == nil {
		return ImageResult{}, false
	}
	return *first, true
}

// PlaceholderImageURL returns a deterministic stock photo URL for cuisine
func PlaceholderImageURL(cuisine string) string {
	tokens := strings.Fields(strings.ToLower(cuisine))
	for i, t := range tokens {
		tokens[i] = url.QueryEscape(t)
	}
	tag := strings.Join(tokens, ",")
	if tag == "" {
		tag = "food"
	}
	return fmt.Sprintf("https://source.unsplash.com/featured/?%s,restaurant,food", tag)
}

// IsHTTPURL reports whether s is an absolute http or https URL
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// objectPutter is the part of the S3 client used for mirroring
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageMirror downloads search images and re-hosts them in an S3 bucket
type S3ImageMirror struct {
	uploader  objectPutter
	bucket    string
	publicURL func(key string) string
	client    *http.Client
	logger    *zap.Logger
}

// NewS3ImageMirror creates a mirror backed by the configured bucket
func NewS3ImageMirror(s3Config *config.S3Config, logger *zap.Logger) *S3ImageMirror {
	return &S3ImageMirror{
		uploader:  s3Config.Client,
		bucket:    s3Config.BucketName,
		publicURL: s3Config.PublicURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("mirror"),
	}
}

// Mirror downloads imageURL and uploads it under restaurant-images/
func (m *S3ImageMirror) Mirror(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image, status: %d", resp.StatusCode)
	}

	if resp.ContentLength > maxImageBytes {
		return "", fmt.Errorf("image too large: %d bytes", resp.ContentLength)
	}
	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) > maxImageBytes {
		return "", fmt.Errorf("image too large: more than %d bytes", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imageData)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}

	key := fmt.Sprintf("restaurant-images/%s%s", uuid.New().String(), imageExtension(imageURL, contentType))
	_, err = m.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := m.publicURL(key)
	m.logger.Debug("mirrored image", zap.String("source", imageURL), zap.String("url", publicURL))
	return publicURL, nil
}

func imageExtension(imageURL, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			return ext
		}
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}
