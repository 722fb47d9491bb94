package model

// Dumper renders a snapshot to some destination (console, file, database, bus).
type Dumper interface {
	// Name identifies the dumper in logs.
	Name() string

	// Emit is called once per flush with the full snapshot.
	// Implementations must not retain the snapshot's slice after returning
	// unless they copy it.
	Emit(snapshot *Snapshot) error
}
