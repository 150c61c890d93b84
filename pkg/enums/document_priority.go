package enums

import "fmt"

// DocumentPriority ranks how urgently a document needs handling.
type DocumentPriority string

const (
	DocumentPriorityLow    DocumentPriority = "low"
	DocumentPriorityMedium DocumentPriority = "medium"
	DocumentPriorityHigh   DocumentPriority = "high"
	DocumentPriorityUrgent DocumentPriority = "urgent"
)

var validDocumentPriorities = []DocumentPriority{
	DocumentPriorityLow,
	DocumentPriorityMedium,
	DocumentPriorityHigh,
	DocumentPriorityUrgent,
}

// String implements fmt.Stringer.
func (d DocumentPriority) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocumentPriority.
func (d DocumentPriority) IsValid() bool {
	for _, candidate := range validDocumentPriorities {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentPriority converts raw input into a DocumentPriority.
func ParseDocumentPriority(value string) (DocumentPriority, error) {
	for _, candidate := range validDocumentPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document priority %q", value)
}
