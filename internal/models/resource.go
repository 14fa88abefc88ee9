package models

// ResourceKind tags the entity a request acts on so the access gate can scope it.
type ResourceKind string

// Resource kinds guarded by the billing API.
const (
	ResourceEnrollment ResourceKind = "ENROLLMENT"
	ResourceFreeze     ResourceKind = "FREEZE"
	ResourceRefund     ResourceKind = "REFUND"
	ResourceGroup      ResourceKind = "GROUP"
)

// ResourceRef identifies one resource by kind and id.
type ResourceRef struct {
	Kind ResourceKind
	ID   string
}
