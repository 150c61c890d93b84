package enums

import "fmt"

// DocumentStatus tracks where a document sits in its lifecycle.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusInProgress DocumentStatus = "in_progress"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusArchived   DocumentStatus = "archived"
)

var validDocumentStatuses = []DocumentStatus{
	DocumentStatusPending,
	DocumentStatusInProgress,
	DocumentStatusCompleted,
	DocumentStatusArchived,
}

// String implements fmt.Stringer.
func (d DocumentStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocumentStatus.
func (d DocumentStatus) IsValid() bool {
	for _, candidate := range validDocumentStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentStatus converts raw input into a DocumentStatus.
func ParseDocumentStatus(value string) (DocumentStatus, error) {
	for _, candidate := range validDocumentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document status %q", value)
}
