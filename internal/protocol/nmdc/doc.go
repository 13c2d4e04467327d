// Package nmdc implements the wire protocol spoken by Direct Connect
// clients and by the hub's internal peers: record framing, the $Lock/$Key
// handshake bijection, and codecs for the positional record shapes
// ($MyINFO, $To:, $Search, $SR).
//
// Records are ASCII, terminated by '|' (0x7C) and never contain newlines.
// Fields inside a record are separated positionally by '$', space or 0x05;
// parsing is by literal prefix and positional scan so that fixed-length
// truncation behavior matches what deployed clients expect.
package nmdc
