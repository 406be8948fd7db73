package auth

// Scopes understood by the timesheet API.
const (
	ScopeShiftsRead       = "shifts:read"
	ScopeShiftsWrite      = "shifts:write"
	ScopeCorrectionsWrite = "corrections:write"
	ScopeCatalogRead      = "catalog:read"
	ScopeCatalogWrite     = "catalog:write"
	ScopeReportsRead      = "reports:read"
	ScopeReportsRequest   = "reports:request"
)

var roleScopes = map[string][]string{
	"master": {ScopeShiftsRead, ScopeShiftsWrite, ScopeCatalogRead},
	"admin": {
		ScopeShiftsRead, ScopeCorrectionsWrite, ScopeCatalogRead, ScopeCatalogWrite,
		ScopeReportsRead, ScopeReportsRequest,
	},
	"owner": {
		ScopeShiftsRead, ScopeShiftsWrite, ScopeCorrectionsWrite, ScopeCatalogRead,
		ScopeCatalogWrite, ScopeReportsRead, ScopeReportsRequest,
	},
}

// ScopesForRole lists the scopes a role claim grants; unknown roles grant none.
func ScopesForRole(role string) []string {
	return roleScopes[role]
}
