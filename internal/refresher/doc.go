// Package refresher keeps the diagnostics file in step with its
// configuration file.
//
// A Refresher is the selfdiag.Authority handed to the Listener. It owns the
// current memory-mapped file, watches the configuration with fsnotify and a
// poll ticker, and on change applies the new level, reopens the file in a
// new directory or size, or turns diagnostics off when the configuration
// file is removed. Replaced files go to an Archiver when one is set.
package refresher
