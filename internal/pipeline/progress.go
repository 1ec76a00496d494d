package pipeline

// ProgressReporter receives progress callbacks during a generate run.
type ProgressReporter interface {
	// OnDiscoveryStart is called before units are enumerated under root.
	OnDiscoveryStart(root string)

	// OnDiscoveryComplete is called with the number of units found.
	OnDiscoveryComplete(units int)

	// OnUnitsStart is called before the first unit is extracted.
	OnUnitsStart(total int)

	// OnUnitProcessed is called after each unit, whatever its outcome.
	OnUnitProcessed(unit string)

	// OnWriting is called before the tag file is written.
	OnWriting(path string)

	// OnComplete is called after the tag file is written.
	OnComplete(summary *Summary)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryStart(root string)  {}
func (NoOpProgressReporter) OnDiscoveryComplete(units int) {}
func (NoOpProgressReporter) OnUnitsStart(total int)        {}
func (NoOpProgressReporter) OnUnitProcessed(unit string)   {}
func (NoOpProgressReporter) OnWriting(path string)         {}
func (NoOpProgressReporter) OnComplete(summary *Summary)   {}
