package diag

// Severity ranks a diagnostic. Warnings never fail a run on their own;
// any SevError diagnostic makes the pipeline exit non-zero without
// writing output.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
