// Package client provides the `flodiag` command-line client.
//
// # Address configuration
//
// The HTTP base URL comes from the embedding application through a
// BaseURLFunc; the standalone binary reads FLODIAG_HTTP and defaults to
// http://127.0.0.1:8080. The gRPC address is read from FLODIAG_GRPC
// (default 127.0.0.1:50051).
//
// Usage
//
//	# Read a diagnostics file directly, live or archived
//	flodiag records ./logs/svc.4242.log
//	flodiag records ./archive/svc.4242.<generation>.log.zst --limit 20
//
//	# Ask the server, with a CEL filter
//	flodiag records --filter 'message.startsWith("request") && size(params) > 1'
//	flodiag records --archive <id> --json
//
//	flodiag archive list
//
//	# Smoke test: write one event through a local runtime or the server
//	flodiag emit "cache miss" users 42
//	flodiag emit --server "cache miss" users
//
//	flodiag health
package client
