package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	VersionID ID
	StagingID ID
	DatasetID ID
	SubjectID ID
)

// String conversions for domain IDs
func (id VersionID) String() string { return ID(id).String() }
func (id StagingID) String() string { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }
func (id SubjectID) String() string { return ID(id).String() }

// ParseVersionID parses a string into VersionID
func ParseVersionID(s string) (VersionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("version ID cannot be empty")
	}
	return VersionID(s), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseSubjectID parses a string into SubjectID
func ParseSubjectID(s string) (SubjectID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("subject ID cannot be empty")
	}
	return SubjectID(s), nil
}
