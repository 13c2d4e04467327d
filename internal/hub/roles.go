package hub

// Role is a connection's privilege tier, kept as a bitmask so dispatch
// gates can name sets of roles. A connection holds exactly one role at a
// time; transitions are monotonic along the login paths.
type Role uint32

const (
	// RoleUnkeyed is a fresh public connection that has not answered
	// the lock challenge.
	RoleUnkeyed Role = 1 << iota
	// RoleUnauthenticated answered the challenge but has not finished
	// logging in.
	RoleUnauthenticated
	RoleRegular
	RoleRegistered
	RoleOperator
	RoleOpAdmin
	// RoleAdmin is the hub administrator, attached via the admin port.
	RoleAdmin
	// RoleWorkerLink is a peer worker's control connection.
	RoleWorkerLink
	// RoleHubLink is a linked hub reachable over the UDP channel.
	RoleHubLink
	// RoleScriptLink is an attached extension script process.
	RoleScriptLink
	// RoleUnauthenticatedAdmin is an admin-port connection that has not
	// yet supplied the admin password.
	RoleUnauthenticatedAdmin
)

// Common gate masks.
const (
	// RolesHuman are logged-in chat users.
	RolesHuman = RoleRegular | RoleRegistered | RoleOperator | RoleOpAdmin
	// RolesOp can see operator commands.
	RolesOp = RoleOperator | RoleOpAdmin | RoleAdmin
	// RolesPeer are non-human process connections.
	RolesPeer = RoleWorkerLink | RoleHubLink | RoleScriptLink
	// RolesAny matches every role.
	RolesAny = ^Role(0)
)

func (r Role) String() string {
	switch r {
	case RoleUnkeyed:
		return "unkeyed"
	case RoleUnauthenticated:
		return "unauthenticated"
	case RoleRegular:
		return "regular"
	case RoleRegistered:
		return "registered"
	case RoleOperator:
		return "operator"
	case RoleOpAdmin:
		return "op-admin"
	case RoleAdmin:
		return "admin"
	case RoleWorkerLink:
		return "worker-link"
	case RoleHubLink:
		return "hub-link"
	case RoleScriptLink:
		return "script-link"
	case RoleUnauthenticatedAdmin:
		return "unauthenticated-admin"
	}
	return "unknown"
}

// Is reports whether the role intersects mask.
func (r Role) Is(mask Role) bool {
	return r&mask != 0
}

// RemovalFlags is the deferred-removal marker. Handlers request teardown
// by setting flags; the owning worker applies them after the current
// record finishes, never mid-dispatch.
type RemovalFlags uint8

const (
	// RemoveConn closes the connection.
	RemoveConn RemovalFlags = 1 << iota
	// RemoveSendQuit announces the departure with $Quit.
	RemoveSendQuit
	// RemoveFromDirectory retracts the nick from the shared directory.
	RemoveFromDirectory
)
