package dispatch

import (
	"strings"

	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

// Command is a host command.
type Command int

const (
	Add Command = iota + 1
	Get
	Checkout
	Checkin
	Uncheckout
	Remove
	ShowDiff
	IsDiff
	History
	Properties
	Status
	EnumerateProviders
	QueryCapability
	RunProviderUI
	Register
	Unload
	SetDebugOverride
)

var commandNames = map[Command]string{
	Add:                "add",
	Get:                "get",
	Checkout:           "checkout",
	Checkin:            "checkin",
	Uncheckout:         "uncheckout",
	Remove:             "remove",
	ShowDiff:           "showdiff",
	IsDiff:             "isdiff",
	History:            "history",
	Properties:         "properties",
	Status:             "status",
	EnumerateProviders: "enumerateproviders",
	QueryCapability:    "querycapability",
	RunProviderUI:      "runproviderui",
	Register:           "register",
	Unload:             "unload",
	SetDebugOverride:   "setdebugoverride",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, n := range commandNames {
		m[n] = c
	}
	return m
}()

// ParseCommand maps a command name, in any case, to its Command.
func ParseCommand(name string) (Command, error) {
	c, ok := commandsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Wrapf(scc.ErrUnknownCommand, "%q", name)
	}
	return c, nil
}

// Names lists every command name.
func Names() []string {
	names := make([]string, 0, len(commandNames))
	for c := Add; c <= SetDebugOverride; c++ {
		names = append(names, commandNames[c])
	}
	return names
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "unknown"
}

// FileScoped reports whether the command operates on target files inside a bound project.
func (c Command) FileScoped() bool {
	return c >= Add && c <= Status
}
