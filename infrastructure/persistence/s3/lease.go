package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"s3vectors/application/ports"
	"s3vectors/domain/core/valueobjects"
	apperrors "s3vectors/pkg/errors"
)

// leaseRecord is the advisory lock object stored at
// indexes/<name>/.builder.lock
type leaseRecord struct {
	LockID     string `json:"lockId"`
	Owner      string `json:"owner"`
	AcquiredAt string `json:"acquiredAt"`
	ExpiresAt  string `json:"expiresAt"`
}

// LeaseManager enforces the single-writer-per-index rule with a TTL lock
// object and conditional writes. An expired record is reclaimed by deleting
// it and re-contending; the conditional PUT decides the winner.
type LeaseManager struct {
	store  ports.ObjectStore
	owner  string
	logger *zap.Logger
}

// NewLeaseManager creates a lease manager with a process-unique owner id
func NewLeaseManager(store ports.ObjectStore, logger *zap.Logger) *LeaseManager {
	return &LeaseManager{
		store:  store,
		owner:  uuid.New().String(),
		logger: logger,
	}
}

var _ ports.LeaseManager = (*LeaseManager)(nil)

// Acquire takes the builder lease for an index, retrying briefly with
// jittered backoff before giving up with ErrLockHeld.
func (m *LeaseManager) Acquire(ctx context.Context, bucket, index string, ttl time.Duration) (ports.Lease, error) {
	key := valueobjects.BuilderLockKey(index)

	var lease *builderLease
	attempt := func() error {
		l, err := m.tryAcquire(ctx, bucket, key, ttl)
		if err != nil {
			if errors.Is(err, ports.ErrLockHeld) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		lease = l
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second

	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, 5), ctx)); err != nil {
		return nil, err
	}
	return lease, nil
}

func (m *LeaseManager) tryAcquire(ctx context.Context, bucket, key string, ttl time.Duration) (*builderLease, error) {
	now := time.Now().UTC()
	record := leaseRecord{
		LockID:     fmt.Sprintf("%s-%d", m.owner, now.UnixNano()),
		Owner:      m.owner,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  now.Add(ttl).Format(time.RFC3339),
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, apperrors.NewInternalError("marshal lease record").WithCause(err)
	}

	err = m.store.PutIfAbsent(ctx, bucket, key, body)
	if errors.Is(err, ports.ErrLockHeld) {
		// Inspect the holder; reclaim if its TTL has lapsed.
		var held leaseRecord
		if _, gerr := m.store.GetJSON(ctx, bucket, key, &held); gerr != nil {
			if apperrors.IsNotFound(gerr) {
				return nil, ports.ErrLockHeld // released between calls, re-contend
			}
			return nil, gerr
		}
		expires, perr := time.Parse(time.RFC3339, held.ExpiresAt)
		if perr != nil || time.Now().UTC().After(expires) {
			m.logger.Warn("reclaiming expired builder lease",
				zap.String("bucket", bucket),
				zap.String("key", key),
				zap.String("holder", held.Owner),
			)
			if derr := m.store.DeleteObject(ctx, bucket, key); derr != nil {
				return nil, derr
			}
		}
		return nil, ports.ErrLockHeld
	}
	if err != nil {
		return nil, err
	}

	m.logger.Debug("builder lease acquired",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("lockID", record.LockID),
	)
	return &builderLease{manager: m, bucket: bucket, key: key, lockID: record.LockID}, nil
}

// builderLease is an acquired lease
type builderLease struct {
	manager *LeaseManager
	bucket  string
	key     string
	lockID  string
}

// Release deletes the lease record if this holder still owns it. A lease
// that expired and was reclaimed by another writer is left untouched.
func (l *builderLease) Release(ctx context.Context) error {
	var held leaseRecord
	if _, err := l.manager.store.GetJSON(ctx, l.bucket, l.key, &held); err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if held.LockID != l.lockID {
		l.manager.logger.Warn("builder lease was taken over before release",
			zap.String("bucket", l.bucket),
			zap.String("key", l.key),
		)
		return nil
	}
	return l.manager.store.DeleteObject(ctx, l.bucket, l.key)
}
