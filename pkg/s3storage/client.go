// "Тупой" клиент зеркала CSV выгрузок. Логика загрузки датасета - в pkg/app.

package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/srag-ai/pkg/config"
)

// ClientInterface определяет интерфейс для S3 клиента.
// Используется для мокания в тестах и внедрения зависимостей.
type ClientInterface interface {
	ListMirrored(ctx context.Context) ([]StoredObject, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
}

type Client struct {
	api    *minio.Client
	bucket string
}

// Проверка что Client реализует ClientInterface
var _ ClientInterface = (*Client)(nil)

// StoredObject - сырой объект из S3
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// MirrorKey возвращает ключ зеркальной копии выгрузки одного года.
func MirrorKey(year int) string {
	return fmt.Sprintf("srag/%d.csv", year)
}

// MirrorYear извлекает год из ключа зеркала; 0 если ключ чужой.
func MirrorYear(key string) int {
	var year int
	if _, err := fmt.Sscanf(key, "srag/%d.csv", &year); err != nil {
		return 0
	}
	return year
}

// New создает клиент, используя наш конфиг
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
	}, nil
}

// ListMirrored возвращает зеркальные копии CSV выгрузок.
func (c *Client) ListMirrored(ctx context.Context) ([]StoredObject, error) {
	var objects []StoredObject

	opts := minio.ListObjectsOptions{
		Prefix:    "srag/",
		Recursive: true,
	}

	for obj := range c.api.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		// Пропускаем "папку"
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return objects, nil
}

// Download скачивает объект целиком в память.
//
// Выгрузки после отбора колонок весят десятки мегабайт - помещаются.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// Upload загружает объект в зеркало.
//
// size == -1 допустим: minio сам переключится на multipart.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := c.api.PutObject(ctx, c.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
