package documents

import "fmt"

// ValidationError is a caller mistake at the upload boundary: disallowed
// content type, oversize or empty file. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// UploadError means the blob write failed after bucket provisioning
// succeeded. Uploads are not retried here; callers may retry, and each retry
// builds a fresh key, so retries never collide with the original attempt.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload object %q: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
