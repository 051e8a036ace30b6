package nft

// State is the progress of one init_nft call.
type State uint8

const (
	StateUninitialized State = iota
	StateMintCreated
	StateSupplyIssued
	StateMetadataAttached
	StateEditionFinalized
	// StateAborted is terminal: some step failed and the ledger discards
	// everything the call wrote.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateMintCreated:
		return "MintCreated"
	case StateSupplyIssued:
		return "SupplyIssued"
	case StateMetadataAttached:
		return "MetadataAttached"
	case StateEditionFinalized:
		return "EditionFinalized"
	case StateAborted:
		return "Aborted"
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateEditionFinalized || s == StateAborted }

type flow struct {
	state   State
	observe func(from, to State)
	log     func(format string, args ...any)
}

func (f *flow) advance(to State) {
	if to == f.state {
		return
	}
	from := f.state
	f.state = to
	f.log("state %s -> %s", from, to)
	if f.observe != nil {
		f.observe(from, to)
	}
}

func (f *flow) abort(err error) (State, error) {
	f.advance(StateAborted)
	return f.state, err
}
