package registry

// Usage restricts which programs accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and a binary enables it by importing the backend package.
type Usage uint8

const (
	// UsageCLI marks backends usable by nftmint's offline mode.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends usable by mintd.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
