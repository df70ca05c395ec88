// Package client implements the analyzer Client.
//
// A Client targets one server endpoint. In launch mode it owns a
// subprocess.Supervisor and therefore the server process; in connect mode it
// owns nothing but its configuration. Every request opens a fresh
// connection, runs one exchange through the protocol driver and closes the
// connection, so concurrent calls on one Client never share a channel.
package client
