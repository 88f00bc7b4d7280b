// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

// Phase is the named state of the wizard workflow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseLoadingTables
	PhaseTablesLoaded
	PhaseUploading
	PhaseUploaded
	PhaseLoadingColumns
	PhaseColumnsLoaded
	PhasePreviewing
	PhasePreviewShown
	PhaseIngesting
	PhaseCompleted
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:           "idle",
	PhaseConnecting:     "connecting",
	PhaseConnected:      "connected",
	PhaseLoadingTables:  "loading tables",
	PhaseTablesLoaded:   "tables loaded",
	PhaseUploading:      "uploading",
	PhaseUploaded:       "uploaded",
	PhaseLoadingColumns: "loading columns",
	PhaseColumnsLoaded:  "columns loaded",
	PhasePreviewing:     "previewing",
	PhasePreviewShown:   "preview shown",
	PhaseIngesting:      "ingesting",
	PhaseCompleted:      "completed",
	PhaseFailed:         "failed",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// InFlight reports whether the phase waits on a backend response.
func (p Phase) InFlight() bool {
	switch p {
	case PhaseConnecting, PhaseLoadingTables, PhaseUploading,
		PhaseLoadingColumns, PhasePreviewing, PhaseIngesting:
		return true
	}
	return false
}

// Op is one of the remote operations.
type Op int

const (
	OpConnect Op = iota
	OpListTables
	OpUpload
	OpListColumns
	OpPreview
	OpIngest
)

// opSpec is a row of the operation table.
type opSpec struct {
	name     string
	inFlight Phase
	success  Phase
	// Status formats for backend-reported and transport failures.
	failed  string
	errored string
}

var ops = map[Op]opSpec{
	OpConnect:     {"connect", PhaseConnecting, PhaseConnected, "Connection failed: %s", "Connection error: %s"},
	OpListTables:  {"list tables", PhaseLoadingTables, PhaseTablesLoaded, "Failed to load tables: %s", "Error loading tables: %s"},
	OpUpload:      {"upload", PhaseUploading, PhaseUploaded, "Upload failed: %s", "Upload error: %s"},
	OpListColumns: {"list columns", PhaseLoadingColumns, PhaseColumnsLoaded, "Failed to load columns: %s", "Error loading columns: %s"},
	OpPreview:     {"preview", PhasePreviewing, PhasePreviewShown, "Failed to load preview: %s", "Error loading preview: %s"},
	OpIngest:      {"ingest", PhaseIngesting, PhaseCompleted, "Ingestion failed: %s", "Ingestion error: %s"},
}

// String returns the operation name.
func (o Op) String() string {
	if spec, ok := ops[o]; ok {
		return spec.name
	}
	return "unknown"
}

// InFlightPhase returns the phase held while o is in flight.
func (o Op) InFlightPhase() Phase {
	return ops[o].inFlight
}

// resting lists the phases in which no request is outstanding.
var resting = []Phase{
	PhaseIdle, PhaseConnected, PhaseTablesLoaded, PhaseUploaded,
	PhaseColumnsLoaded, PhasePreviewShown, PhaseCompleted, PhaseFailed,
}

// transitions is the edge set of the workflow, built from the operation
// table. Configuration edits move between settled phases, any resting phase
// may start an operation, and an in-flight phase ends in its success phase or
// falls back to the settled phase its unchanged data implies. Only ingestion
// ends in Completed or Failed.
var transitions = buildTransitions()

func buildTransitions() map[Phase]map[Phase]bool {
	t := make(map[Phase]map[Phase]bool)
	add := func(from, to Phase) {
		if t[from] == nil {
			t[from] = make(map[Phase]bool)
		}
		t[from][to] = true
	}
	settled := func(p Phase) bool { return p != PhaseCompleted && p != PhaseFailed }

	for _, from := range resting {
		for _, to := range resting {
			if settled(to) {
				add(from, to)
			}
		}
		for _, spec := range ops {
			add(from, spec.inFlight)
		}
	}
	for op, spec := range ops {
		add(spec.inFlight, spec.success)
		if op == OpIngest {
			add(spec.inFlight, PhaseFailed)
			continue
		}
		for _, to := range resting {
			if settled(to) {
				add(spec.inFlight, to)
			}
		}
	}
	return t
}

// CanTransition reports whether the workflow allows moving from one phase to
// another. Staying in the same phase is always allowed.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	return transitions[from][to]
}
