package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewStoreID generates a unique store ID with the "store_" prefix
func NewStoreID() string {
	return "store_" + uuid.New().String()
}

// NewSnapshotID generates a unique price-history snapshot ID
func NewSnapshotID() string {
	return "snap_" + uuid.New().String()
}
