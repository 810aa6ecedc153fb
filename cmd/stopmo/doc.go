// Package main hosts the stopmo CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the camera, and the
// export recorder into an internal/session.Session and exposes it through a
// line-based REPL, batch export of still files, the export history, and a
// dependency doctor. Behavior lives in the internal packages; commands here
// only translate terminal input and render results.
package main
