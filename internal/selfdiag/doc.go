// Package selfdiag implements the self-diagnostics event writer.
//
// # Overview
//
// A Listener turns events (a message plus ordered parameters) into single
// lines of UTF-8 text and copies them into a Window granted by an Authority,
// normally the memory-mapped circular file owned by the refresher:
//
//	2020-08-14T20:33:24.4788109Z:Event Message{param1}{param2}
//
// Every line is built in a fixed 4 KiB scratch buffer by EncodeInBuffer,
// which never writes past the buffer and marks truncated values with "..."
// (or "{...}" for parameters). Nothing in the write path returns an error to
// the caller: a refused window or a failed copy drops the line.
//
//	l, _ := selfdiag.NewListener(log.WarnLevel, authority)
//	l.OnEvent(selfdiag.Event{Level: log.ErrorLevel, Message: "export failed", Payload: []any{err}})
//
// Scan parses lines back out of a file image and Filter narrows the result
// with a CEL expression.
package selfdiag
