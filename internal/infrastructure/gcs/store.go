package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
)

// ErrObjectNotFound 表示对象不存在。
var ErrObjectNotFound = errors.New("gcs: object not found")

// ObjectStore 封装对象的读写。worker 用它下载源 PDF、写入结果 JSON。
type ObjectStore struct {
	client *storage.Client
	log    *log.Helper
}

// NewObjectStore 基于默认凭据创建 ObjectStore，返回 Wire cleanup。
func NewObjectStore(ctx context.Context, logger log.Logger) (*ObjectStore, func(), error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	store := &ObjectStore{client: client, log: log.NewHelper(logger)}
	cleanup := func() {
		_ = client.Close()
	}
	return store, cleanup, nil
}

// Download 读取整个对象内容。对象不存在时返回 ErrObjectNotFound。
func (s *ObjectStore) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object %s/%s: %w", bucket, objectName, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, objectName, err)
	}
	return data, nil
}

// Upload 覆盖写入对象内容。
func (s *ObjectStore) Upload(ctx context.Context, bucket, objectName, contentType string, data []byte) error {
	writer := s.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write object %s/%s: %w", bucket, objectName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// ParseURI 解析 gs://bucket/object 形式的 URI。
func ParseURI(uri string) (bucket, objectName string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("invalid gcs uri: %q", uri)
	}
	rest := uri[len(prefix):]
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", fmt.Errorf("invalid gcs uri: %q", uri)
	}
	return rest[:slash], rest[slash+1:], nil
}

// FormatURI 拼接 gs:// URI。
func FormatURI(bucket, objectName string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, objectName)
}
