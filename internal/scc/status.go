package scc

import "strings"

// FileStatus is the provider-defined bit set returned per file by QueryInfo.
// The host passes these values through verbatim.
type FileStatus int32

const (
	StatusInvalid       FileStatus = -1
	StatusNotControlled FileStatus = 0x0000
	StatusControlled    FileStatus = 0x0001
	StatusCheckedOut    FileStatus = 0x0002
	StatusOutOther      FileStatus = 0x0004
	StatusOutExclusive  FileStatus = 0x0008
	StatusOutMultiple   FileStatus = 0x0010
	StatusOutOfDate     FileStatus = 0x0020
	StatusDeleted       FileStatus = 0x0040
	StatusLocked        FileStatus = 0x0080
	StatusMerged        FileStatus = 0x0100
	StatusShared        FileStatus = 0x0200
	StatusPinned        FileStatus = 0x0400
	StatusModified      FileStatus = 0x0800
	StatusOutByUser     FileStatus = 0x1000
	StatusNoMerge       FileStatus = 0x2000

	// StatusNoHostProject is reported for every file when no project could be
	// bound for the file's directory. It lies outside the provider-defined bits.
	StatusNoHostProject FileStatus = 0x10000
)

var statusNames = []struct {
	bit  FileStatus
	name string
}{
	{StatusControlled, "controlled"},
	{StatusCheckedOut, "checkedout"},
	{StatusOutOther, "outother"},
	{StatusOutExclusive, "outexclusive"},
	{StatusOutMultiple, "outmultiple"},
	{StatusOutOfDate, "outofdate"},
	{StatusDeleted, "deleted"},
	{StatusLocked, "locked"},
	{StatusMerged, "merged"},
	{StatusShared, "shared"},
	{StatusPinned, "pinned"},
	{StatusModified, "modified"},
	{StatusOutByUser, "outbyuser"},
	{StatusNoMerge, "nomerge"},
	{StatusNoHostProject, "nohostproject"},
}

// Has reports whether every bit of b is set.
func (s FileStatus) Has(b FileStatus) bool { return s&b == b }

func (s FileStatus) String() string {
	switch s {
	case StatusInvalid:
		return "invalid"
	case StatusNotControlled:
		return "notcontrolled"
	}
	var parts []string
	for _, n := range statusNames {
		if s.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}
