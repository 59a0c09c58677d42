package reload

import "time"

// ChangedSetting records one setting whose effective value differed before
// and after a successful apply pass, in the root process, during a reload.
type ChangedSetting struct {
	Name     string
	OldValue string
	NewValue string
}

// RemovedSetting records one setting reverted to its boot default because
// its file-sourced line disappeared from the configuration.
type RemovedSetting struct {
	Name     string
	OldValue string
}

// Warning is a SemanticImmutable outcome: a removed setting whose change
// class forbids reverting it in the current context, left as-is.
type Warning struct {
	Name string
	Msg  string
}

// Report summarizes a successful reload.
type Report struct {
	Context    string
	Changed    []ChangedSetting
	Removed    []RemovedSetting
	Warnings   []Warning
	ReloadedAt time.Time
}
