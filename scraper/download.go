// scraper/download.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"google.golang.org/api/option"

	"github.com/ibis-project/ibis-examples/models"
	"github.com/ibis-project/ibis-examples/utils"
)

// Downloader fetches a remote file to a local path. http(s) URLs are fetched
// with a plain GET; gs:// and s3:// URLs go through the bucket SDKs with
// anonymous credentials, since both public datasets allow unauthenticated reads.
type Downloader struct {
	Client   *http.Client
	S3Region string

	// Optional endpoint overrides for S3-compatible and GCS-compatible servers.
	S3Endpoint  string
	GCSEndpoint string

	gcsOnce   sync.Once
	gcsClient *storage.Client
	gcsErr    error
}

// NewDownloader returns a Downloader whose HTTP client gives up after timeout.
func NewDownloader(timeout time.Duration, s3Region string) *Downloader {
	return &Downloader{
		Client:   &http.Client{Timeout: timeout},
		S3Region: s3Region,
	}
}

// Fetch downloads rawURL to destPath. The file only appears at destPath once
// the whole body has been written.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destPath string) error {
	log.Printf("Scraper: Downloading %s to %s\n", rawURL, destPath)

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %s: %w", models.ErrNetwork, rawURL, err)
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		body, err = d.openHTTP(ctx, rawURL)
	case "gs":
		body, err = d.openGCS(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "s3":
		body, err = d.openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return fmt.Errorf("%w: unsupported scheme %q in %s", models.ErrNetwork, u.Scheme, rawURL)
	}
	if err != nil {
		return err
	}
	defer body.Close()

	var written int64
	err = utils.WriteFileAtomic(destPath, func(w io.Writer) error {
		n, err := io.Copy(w, body)
		written = n
		if err != nil {
			return fmt.Errorf("%w: failed to copy downloaded content to %s: %w", models.ErrNetwork, destPath, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Scraper: Downloaded %d bytes from %s\n", written, rawURL)
	return nil
}

func (d *Downloader) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request for %s: %w", models.ErrNetwork, rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to make GET request to %s: %w", models.ErrNetwork, rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: failed to download file from %s: received status code %d", models.ErrNetwork, rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (d *Downloader) gcs(ctx context.Context) (*storage.Client, error) {
	d.gcsOnce.Do(func() {
		opts := []option.ClientOption{option.WithoutAuthentication()}
		if d.GCSEndpoint != "" {
			opts = append(opts, option.WithEndpoint(d.GCSEndpoint))
		}
		if d.Client != nil {
			opts = append(opts, option.WithHTTPClient(d.Client))
		}
		d.gcsClient, d.gcsErr = storage.NewClient(ctx, opts...)
	})
	return d.gcsClient, d.gcsErr
}

func (d *Downloader) openGCS(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	client, err := d.gcs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create storage client: %w", models.ErrNetwork, err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s does not exist", models.ErrNetwork, bucket, object)
		}
		return nil, fmt.Errorf("%w: failed to open gs://%s/%s: %w", models.ErrNetwork, bucket, object, err)
	}
	return r, nil
}

func (d *Downloader) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	awsCfg := &aws.Config{
		Region:      aws.String(d.S3Region),
		Credentials: credentials.AnonymousCredentials,
		HTTPClient:  d.Client,
	}
	if d.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(d.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create AWS session: %w", models.ErrNetwork, err)
	}
	out, err := s3.New(sess).GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get s3://%s/%s: %w", models.ErrNetwork, bucket, key, err)
	}
	return out.Body, nil
}

// Close releases the storage client if one was created.
func (d *Downloader) Close() error {
	if d.gcsClient != nil {
		return d.gcsClient.Close()
	}
	return nil
}
