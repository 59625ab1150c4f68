// Package httpserver exposes the diagnostics file over JSON: health, CEL
// filtered records from the live or an archived file, the archive catalog,
// and an endpoint to emit events.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data"})
//	s := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
