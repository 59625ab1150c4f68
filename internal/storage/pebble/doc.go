// Package pebblestore is a thin wrapper around Pebble used for the archive
// catalog: point reads and writes under an fsync policy, batched deletes,
// and ordered prefix scans.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./catalog",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("archive/0001"), value)
//	_ = db.Scan([]byte("archive/"), func(k, v []byte) bool { return true })
package pebblestore
