package app

import (
	"github.com/spf13/pflag"
)

// CliOptions is implemented by the top-level options of a binary.
type CliOptions interface {
	// Flags returns flags grouped by section.
	Flags() NamedFlagSets
	// Complete fills derived defaults.
	Complete() error
	// Validate validates the options.
	Validate() error
}

// NamedFlagSets keeps flag sets in registration order so help output is grouped.
type NamedFlagSets struct {
	Order    []string
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set with the given name, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}
