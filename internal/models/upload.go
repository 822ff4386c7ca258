package models

import "io"

// UploadFile is one file selected for upload. Open is called once per attempt.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadFailure records why one file of a batch was not uploaded.
type UploadFailure struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// UploadBatchResult aggregates one batch. Sequences follow the order files were selected.
type UploadBatchResult struct {
	ContainerID      string          `json:"containerId"`
	SucceededFileIDs []string        `json:"succeededFileIds"`
	Failures         []UploadFailure `json:"failures"`
}

// Success is true iff at least one file was uploaded.
func (r UploadBatchResult) Success() bool {
	return len(r.SucceededFileIDs) > 0
}
