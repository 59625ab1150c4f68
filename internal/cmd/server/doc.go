// Package serverrun exposes the Run entrypoint used by `flodiag serve`: it
// opens the runtime, follows the diagnostics configuration and serves the
// gRPC and HTTP APIs until shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", GRPCAddr: ":50051", HTTPAddr: ":8080"}
//	_ = serverrun.Run(ctx, opts)
package serverrun
