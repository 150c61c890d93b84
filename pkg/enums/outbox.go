package enums

import "fmt"

// OutboxEventType names a domain event queued for publication.
type OutboxEventType string

const (
	EventDocumentUploaded OutboxEventType = "document.uploaded"
	EventDocumentRouted   OutboxEventType = "document.routed"
	EventDocumentArchived OutboxEventType = "document.archived"
	EventDocumentDeleted  OutboxEventType = "document.deleted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDocumentUploaded,
	EventDocumentRouted,
	EventDocumentArchived,
	EventDocumentDeleted,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateDocument OutboxAggregateType = "document"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}
