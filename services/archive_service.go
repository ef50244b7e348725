package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/types"
)

// ObjectUploader is implemented by *manager.Uploader
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArchiveService copies events to S3 compatible storage as JSON objects
type ArchiveService struct {
	uploader ObjectUploader
	bucket   string
	prefix   string
}

func NewArchiveService(uploader ObjectUploader, bucket, prefix string) *ArchiveService {
	return &ArchiveService{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// ObjectKey is <prefix>/events/<kind>/<slot>-<id>.json
func (as *ArchiveService) ObjectKey(event *types.Event) string {
	return path.Join(as.prefix, "events", string(event.Kind), fmt.Sprintf("%020d-%s.json", event.Slot, event.ID))
}

func (as *ArchiveService) Archive(ctx context.Context, event *types.Event) (string, error) {
	if as.uploader == nil {
		return "", nil
	}
	content, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	key := as.ObjectKey(event)
	_, uErr := as.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(as.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if uErr != nil {
		level.Error(global.Logger).Log("msg", "failed to archive event", "key", key, "err", uErr)
		return "", uErr
	}
	return fmt.Sprintf("s3://%s/%s", as.bucket, key), nil
}
