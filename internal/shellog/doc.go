// Package shellog correlates freshly appended shell log content with the
// command that caused it.
//
// # The Problem
//
// The console host owns the log file and appends to it at unpredictable
// times: echoes of our injected commands, their output, and unrelated
// background traffic all land in the same append-only stream. The only
// synchronization primitive available is "the file changed". This package
// answers two questions after every change: which lines are new since we last
// looked, and do they belong to the command we just issued?
//
// # Session Markers
//
// A unique token is typed into the console after every successful
// extraction. The host rejects it as an unknown command, which plants the
// token (plus the host's fixed two-line complaint) in the log. The next read
// locates the token and treats everything three lines past it as new.
// Exactly one marker is live at a time. A set marker that cannot be found
// means the log was rotated or truncated externally; resynchronizing would
// risk replaying or dropping output, so that is a fatal desync.
//
// # Flush Classification
//
// The host finalizes buffered output into the log either on its own schedule
// (automatic flush) or in response to the explicit flush command. A new
// suffix whose last line is the flush command's own echo is command
// triggered: the echo and the blank spacer before it are verified and
// trimmed, the remaining lines returned, and a fresh marker planted. Anything
// else is an automatic flush: the lines are reported but the marker stays
// put, so the next read sees them again together with whatever followed.
//
// # Reading
//
// Every call reads the whole file fresh. Reads are unsynchronized snapshots;
// a torn final line simply fails the sentinel comparison and the cycle waits
// for the next change, so partial writes are harmless by construction.
package shellog
