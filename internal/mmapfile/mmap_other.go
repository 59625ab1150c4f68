//go:build !unix

package mmapfile

import "os"

// Without mmap support the file is mirrored in memory and written back on
// Sync and Close.

func mapFile(_ *os.File, size int) ([]byte, error) {
	return make([]byte, size), nil
}

func syncFile(f *os.File, data []byte) error {
	_, err := f.WriteAt(data, 0)
	return err
}

func unmapFile([]byte) error { return nil }
