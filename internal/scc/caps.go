package scc

import "strings"

// Capability is the bit set a provider reports from Initialize.
type Capability int32

const (
	CapRemove            Capability = 0x00000001
	CapRename            Capability = 0x00000002
	CapDiff              Capability = 0x00000004
	CapHistory           Capability = 0x00000008
	CapProperties        Capability = 0x00000010
	CapRunScc            Capability = 0x00000020
	CapGetCommandOptions Capability = 0x00000040
	CapQueryInfo         Capability = 0x00000080
	CapGetEvents         Capability = 0x00000100
	CapGetProjPath       Capability = 0x00000200
	CapAddFromScc        Capability = 0x00000400
	CapCommentCheckout   Capability = 0x00000800
	CapCommentCheckin    Capability = 0x00001000
	CapCommentAdd        Capability = 0x00002000
	CapCommentRemove     Capability = 0x00004000
	CapTextOut           Capability = 0x00008000
)

var capNames = []struct {
	bit  Capability
	name string
}{
	{CapRemove, "remove"},
	{CapRename, "rename"},
	{CapDiff, "diff"},
	{CapHistory, "history"},
	{CapProperties, "properties"},
	{CapRunScc, "runscc"},
	{CapGetCommandOptions, "getcommandoptions"},
	{CapQueryInfo, "queryinfo"},
	{CapGetEvents, "getevents"},
	{CapGetProjPath, "getprojpath"},
	{CapAddFromScc, "addfromscc"},
	{CapCommentCheckout, "commentcheckout"},
	{CapCommentCheckin, "commentcheckin"},
	{CapCommentAdd, "commentadd"},
	{CapCommentRemove, "commentremove"},
	{CapTextOut, "textout"},
}

// Has reports whether every bit of c is set.
func (m Capability) Has(c Capability) bool { return m&c == c }

// Names lists the known capabilities present in the mask.
func (m Capability) Names() []string {
	var names []string
	for _, n := range capNames {
		if m.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	return names
}

func (m Capability) String() string {
	names := m.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
