package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique import job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewMaterialID generates a unique material ID with the "mat_" prefix
func NewMaterialID() string {
	return "mat_" + uuid.New().String()
}
