package types

// Version is the canonical project version.
// The CLI and the join header share this version.
const Version = "0.3.0"

// LogFormatVersion is the only merged-log container version this module
// reads or writes. Any other value in a file header is fatal.
const LogFormatVersion uint32 = 1
