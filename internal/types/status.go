package types

// Status is a type for the lifecycle state of a resource in the store.
// Draft entitlement definitions never reach evaluation; archived and deleted
// resources are excluded from all queries by default.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
