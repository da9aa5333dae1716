// Package ipc exposes the daemon control surface as JSON-RPC over a Unix
// domain socket. The CLI is the only intended client.
package ipc
