// Package mmapfile provides a fixed-size, memory-mapped file written as a
// circular log.
//
// Usage:
//
//	f, err := mmapfile.Open(mmapfile.Options{Path: "/var/log/app/app.4242.log", Size: 1 << 20})
//	if err != nil { /* handle */ }
//	defer f.Close()
//
//	// Reserve room for one record; the file lock is held until Commit/Abandon.
//	w, ok := f.TryGetWindow(len(line))
//	if ok {
//	    n, _ := w.Write(line)
//	    w.Commit(n)
//	}
//
// When a request does not fit between the write position and the end of the
// file, the position wraps to the start and older records are overwritten.
package mmapfile
