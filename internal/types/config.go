package types

type RunMode string

const (
	// ModeLocal runs the resolver core with in-memory stores only
	ModeLocal RunMode = "local"
	// ModeServer runs the core with the postgres-backed usage ledger
	ModeServer RunMode = "server"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)

// EntitlementVersionPolicy controls which plan version entitlement
// definitions are resolved against at evaluation time.
type EntitlementVersionPolicy string

const (
	// VersionPolicyPinned resolves against the plan version captured on the
	// subscription at the time it was created
	VersionPolicyPinned EntitlementVersionPolicy = "pinned"
	// VersionPolicyLatest always resolves against the latest published plan version
	VersionPolicyLatest EntitlementVersionPolicy = "latest"
)
