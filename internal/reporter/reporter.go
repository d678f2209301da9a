package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Log(line LogLine)
	JobStarted(info JobStartInfo)
	JobProgress(progress ProgressSnapshot)
	JobComplete(outcome JobOutcome)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	BatchStarted(info BatchStartInfo)
	FileProgress(context FileProgressContext)
	BatchProgress(progress BatchProgressSnapshot)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Log(LogLine)                         {}
func (NullReporter) JobStarted(JobStartInfo)             {}
func (NullReporter) JobProgress(ProgressSnapshot)        {}
func (NullReporter) JobComplete(JobOutcome)              {}
func (NullReporter) Warning(string)                      {}
func (NullReporter) Error(ReporterError)                 {}
func (NullReporter) OperationComplete(string)            {}
func (NullReporter) BatchStarted(BatchStartInfo)         {}
func (NullReporter) FileProgress(FileProgressContext)    {}
func (NullReporter) BatchProgress(BatchProgressSnapshot) {}
func (NullReporter) BatchComplete(BatchSummary)          {}
func (NullReporter) Verbose(string)                      {}
