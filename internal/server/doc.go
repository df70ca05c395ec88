// Package server locates the analysis server binary and builds the command
// line used to launch it.
//
// # Discovery
//
// The Discoverer interface locates the server binary:
//
//	discoverer := server.NewDiscoverer(&server.Config{
//	    ServerPath: "",           // Optional explicit path
//	    Logger:     slog.Default(),
//	})
//	path, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.ServerPath (if provided)
//  2. System PATH, for each name in BinaryNames
//  3. Common installation directories (/usr/local/bin, /usr/bin, /opt/freeling/bin)
//
// # Command Building
//
//	args, err := server.BuildArgs(50005, "-f es.cfg --outlv tagged", "")
//	env := server.BuildEnvironment(options.Env)
//
// Launch arguments are an opaque string. They are split into argv with
// shell-style quoting and never interpreted.
package server
