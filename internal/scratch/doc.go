// Package scratch implements the scratch-file lifecycle behind autosave.
//
// A Manager turns a freshly created, empty editor buffer into a file named
// after the current time inside a configured directory, and removes that file
// again when the buffer is closed without real content.
//
// The lifecycle of a path is:
//
//	Untracked ──AutoSave/PerformSave──▶ Tracked ──DeleteTrackedFile──▶ Deleted
//
// A path whose deletion fails stays Tracked; the failure is returned to the
// caller and no retry is attempted.
//
// # Naming
//
// File names come from two formats:
//
//	timestamp_format = "%Y_%m_%d_%H%M%S"           # strftime
//	filename_format  = "{timestamp}.{extension}"
//
// When use_microseconds is set, six microsecond digits are appended as
// "_%f" and the last three characters of the result are dropped, so the
// suffix carries millisecond precision:
//
//	2024_03_19_123456_123
//
// Existing files are never overwritten: "name.md" becomes "name_1.md",
// "name_2.md" and so on.
//
// # Hosts
//
// The Manager knows nothing about editors. Hosts hand it a Buffer, which
// exposes the handful of operations the lifecycle needs, and surface any
// returned error to the user with UserMessage.
package scratch
