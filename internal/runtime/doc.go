// Package runtime wires the diagnostics configuration, listener, refresher
// and archive into a single instance.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data"})
//	defer rt.Close()
//	_ = rt.Start(ctx)
//	rt.Emit("cache miss for {0}", key)
package runtime
