// Package grpcserver hosts the standard gRPC health service for a flodiag
// runtime. Failed unary calls are written to the diagnostics file by
// UnaryInterceptor.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data"})
//	s := grpcserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
