// Package subprocess launches and supervises a local analysis server.
//
// A Supervisor owns exactly one server process. Start spawns it and blocks
// until the server accepts TCP connections on its port; afterwards a wait
// goroutine tracks the process so callers can ask Alive before dialing.
// Stop terminates the process once (SIGTERM, grace period, SIGKILL) and
// Detach hands it off so it outlives the client.
package subprocess
