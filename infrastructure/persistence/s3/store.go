// Package s3 implements the object store adapter over an S3-compatible
// endpoint, plus the advisory builder lease built on conditional writes.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"s3vectors/application/ports"
	apperrors "s3vectors/pkg/errors"
)

const deleteBatchSize = 1000

// Store adapts the S3 API to the ObjectStore port. User-visible bucket
// names are mapped to physical buckets by prepending the configured prefix;
// no other component is aware of the prefix.
type Store struct {
	client *awss3.Client
	prefix string
	logger *zap.Logger
}

// NewStore creates a new object store adapter
func NewStore(client *awss3.Client, bucketPrefix string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		prefix: bucketPrefix,
		logger: logger,
	}
}

var _ ports.ObjectStore = (*Store)(nil)

// physical maps a vector-bucket name to the underlying bucket name
func (s *Store) physical(bucket string) string {
	return s.prefix + bucket
}

// EnsureBucket creates the underlying bucket if it does not exist
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateBucket(ctx, &awss3.CreateBucketInput{
		Bucket: aws.String(s.physical(bucket)),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return s.classify("create bucket", bucket, err)
	}
	return nil
}

// BucketExists reports whether the underlying bucket exists
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(s.physical(bucket)),
	})
	if err != nil {
		classified := s.classify("head bucket", bucket, err)
		if apperrors.IsNotFound(classified) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// ListBuckets returns the vector-bucket names present in the store
func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		return nil, s.classify("list buckets", "", err)
	}
	var names []string
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		if strings.HasPrefix(name, s.prefix) {
			names = append(names, strings.TrimPrefix(name, s.prefix))
		}
	}
	return names, nil
}

// PutBytes writes an object and returns its etag
func (s *Store) PutBytes(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error) {
	out, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.physical(bucket)),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s.classify("put object", key, err)
	}
	return trimETag(aws.ToString(out.ETag)), nil
}

// GetBytes reads an object, returning its body and etag
func (s *Store) GetBytes(ctx context.Context, bucket, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.physical(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", s.classify("get object", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", apperrors.NewDependencyError("read object body", err)
	}
	return body, trimETag(aws.ToString(out.ETag)), nil
}

// PutJSON serializes a value as a JSON object
func (s *Store) PutJSON(ctx context.Context, bucket, key string, v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", apperrors.NewInternalError("marshal JSON object").WithCause(err)
	}
	return s.PutBytes(ctx, bucket, key, body, "application/json")
}

// GetJSON deserializes a JSON object into v
func (s *Store) GetJSON(ctx context.Context, bucket, key string, v interface{}) (string, error) {
	body, etag, err := s.GetBytes(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return "", apperrors.NewDependencyError("decode JSON object", err)
	}
	return etag, nil
}

// ListPrefix returns all keys under the prefix in lexicographic order
func (s *Store) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.physical(bucket)),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.classify("list prefix", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// DeletePrefix removes every object under the prefix in batches of 1000
func (s *Store) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	keys, err := s.ListPrefix(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.physical(bucket)),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return s.classify("delete prefix", prefix, err)
		}
	}
	return nil
}

// DeleteObject removes a single object; deleting a missing object is a no-op
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.physical(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		classified := s.classify("delete object", key, err)
		if apperrors.IsNotFound(classified) {
			return nil
		}
		return classified
	}
	return nil
}

// PutIfAbsent writes an object only when the key does not exist, using a
// conditional PUT. A losing race surfaces as ErrLockHeld.
func (s *Store) PutIfAbsent(ctx context.Context, bucket, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.physical(bucket)),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if httpStatus(err) == http.StatusPreconditionFailed || apiErrorCode(err) == "PreconditionFailed" {
			return ports.ErrLockHeld
		}
		return s.classify("conditional put", key, err)
	}
	return nil
}

// classify maps SDK errors to the error taxonomy: missing objects and
// buckets become NotFound, everything else a retryable Dependency error.
func (s *Store) classify(operation, resource string, err error) error {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return apperrors.NewNotFoundError("object", resource).WithCause(err)
	}
	switch apiErrorCode(err) {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return apperrors.NewNotFoundError("object", resource).WithCause(err)
	}
	if httpStatus(err) == http.StatusNotFound {
		return apperrors.NewNotFoundError("object", resource).WithCause(err)
	}
	s.logger.Warn("object store operation failed",
		zap.String("operation", operation),
		zap.String("resource", resource),
		zap.Error(err),
	)
	return apperrors.NewDependencyError(operation, err)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
