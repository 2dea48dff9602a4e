package model

// PublicShift is a shift as seen through the cross-tenant public pool,
// annotated with the owning tenant's display name.
type PublicShift struct {
	Shift
	TenantName string `json:"tenant_name"`
}
