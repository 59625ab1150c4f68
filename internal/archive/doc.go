// Package archive retires diagnostics files that the refresher replaced.
//
// A retired file is compressed with zstd into the archive directory and a
// catalog entry is written to Pebble under archive/{id}, where id is a
// sortable pkg/id value so catalog order is retirement order. Entries older
// than the retention period are removed by Sweep, which Start schedules with
// a cron expression.
package archive
