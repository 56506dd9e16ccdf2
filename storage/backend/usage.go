package backend

// Usage is a bit set naming the kinds of program a backend may be linked into.
type Usage uint8

const (
	// UsageCLI: the xdao-idreg command line tool.
	UsageCLI Usage = 1 << iota
	// UsageDaemon: the long-running xdao-idregd server.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

func (u Usage) String() string {
	switch u {
	case UsageCLI:
		return "cli"
	case UsageDaemon:
		return "daemon"
	case UsageCLI | UsageDaemon:
		return "cli+daemon"
	default:
		return "none"
	}
}
