package syncer

import (
	"fmt"
)

// PlatformError reports a failed call to the translation platform.
type PlatformError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s for task %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// DownloadError reports a failure while fetching or unpacking the export bundle.
type DownloadError struct {
	Stage string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Stage, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
