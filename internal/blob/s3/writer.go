package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/whalewatch/engine/internal/domain"
)

// uploadPartSize is the multipart chunk size. 5 MiB is the S3 minimum;
// archive batches rarely exceed one part.
const uploadPartSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter on top of the upload manager, so the
// same path serves both small alert batches and months that have grown past
// the single-request size.
type Writer struct {
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a Writer targeting the client's bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{
		uploader: manager.NewUploader(c.S3(), func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		bucket: c.Bucket(),
	}
}

var _ domain.BlobWriter = (*Writer)(nil)

// Put uploads data to path. The manager splits oversized payloads into
// concurrent multipart uploads transparently.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}
