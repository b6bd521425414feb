package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/crewdocs/crewdocs-api/internal/utils"
)

// Provisioner ensures the logical bucket exists before first use. It keeps no
// in-process state, so it is safe to call on every cold start.
type Provisioner struct {
	backend Backend
	logger  *utils.Logger
}

func NewProvisioner(backend Backend, logger *utils.Logger) *Provisioner {
	return &Provisioner{backend: backend, logger: logger}
}

// EnsureBucket creates the named bucket if it is absent. Two callers racing
// to provision the same bucket both succeed: an "already exists" answer from
// the backend's create is success, not failure.
func (p *Provisioner) EnsureBucket(ctx context.Context, name string, policy BucketPolicy) error {
	buckets, err := p.backend.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", err)
	}

	if slices.Contains(buckets, name) {
		return nil
	}

	p.logger.Info("Bucket missing, creating", "bucket", name)
	if err := p.backend.CreateBucket(ctx, name, policy); err != nil {
		if errors.Is(err, ErrBucketExists) {
			// Lost the provisioning race to a concurrent caller.
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", name, err)
	}

	return nil
}
