package nmdc

import "fmt"

// Builders for the records the hub originates. Each returns one complete
// record with its terminator.

func BuildLock(lock, pk []byte) string {
	return fmt.Sprintf("$Lock %s Pk=%s|", lock, pk)
}

func BuildHubName(name string) string {
	return fmt.Sprintf("$HubName %s|", name)
}

func BuildHello(nick string) string {
	return fmt.Sprintf("$Hello %s|", nick)
}

func BuildQuit(nick string) string {
	return fmt.Sprintf("$Quit %s|", nick)
}

func BuildForceMove(host string) string {
	return fmt.Sprintf("$ForceMove %s|", host)
}

func BuildValidateDenide(nick string) string {
	return fmt.Sprintf("$ValidateDenide %s|", nick)
}

func BuildGetPass() string {
	return "$GetPass|"
}

func BuildBadPass() string {
	return "$BadPass|"
}

// BuildLogedIn confirms an operator login. The verb keeps the spelling
// clients expect on the wire.
func BuildLogedIn(nick string) string {
	return fmt.Sprintf("$LogedIn %s|", nick)
}

func BuildHubIsFull() string {
	return "$HubIsFull|"
}

// BuildNickList renders the comma-style nick list, each entry terminated
// with "$$".
func BuildNickList(nicks []string) string {
	out := "$NickList "
	for _, n := range nicks {
		out += n + "$$"
	}
	return out + "|"
}

// BuildOpList renders the operator list in nick-list form.
func BuildOpList(nicks []string) string {
	out := "$OpList "
	for _, n := range nicks {
		out += n + "$$"
	}
	return out + "|"
}
