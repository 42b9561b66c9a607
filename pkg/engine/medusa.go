package engine

// Medusa is a placeholder for the Medusa commerce stack. The tag is
// registered so requests for it fail with a stable engine-unavailable
// result instead of an unknown-engine error.
type Medusa struct{}

// NewMedusa creates the Medusa engine placeholder
func NewMedusa() *Medusa {
	return &Medusa{}
}

// Name returns the engine tag
func (m *Medusa) Name() string {
	return "medusa"
}

// ChartPath returns an empty path; Medusa has no chart yet
func (m *Medusa) ChartPath() string {
	return ""
}

// Values is never reached while Validate reports unavailable
func (m *Medusa) Values(storeID string) (map[string]string, error) {
	return nil, nil
}

// URLs is never reached while Validate reports unavailable
func (m *Medusa) URLs(storeID string) (string, string) {
	return "", ""
}

// Validate reports that Medusa cannot provision stores yet
func (m *Medusa) Validate() ValidationResult {
	return ValidationResult{Error: "Medusa engine is not yet available"}
}
