package valueobjects

import (
	"fmt"
	"strings"
)

// BucketARN returns the ARN form of a vector bucket name
func BucketARN(bucket string) string {
	return fmt.Sprintf("arn:aws:s3vectors:::bucket/%s", bucket)
}

// IndexARN returns the ARN form of an index
func IndexARN(bucket, index string) string {
	return fmt.Sprintf("arn:aws:s3vectors:::index/%s/%s", bucket, index)
}

// NameFromARN extracts the trailing resource name from an ARN. A bare name
// passes through unchanged, so callers may hand either form.
func NameFromARN(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// BucketAndIndexFromARN extracts the (bucket, index) pair from an index ARN
func BucketAndIndexFromARN(arn string) (string, string) {
	parts := strings.Split(arn, "/")
	if len(parts) < 2 {
		return "", NameFromARN(arn)
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}
