package domain

// MedicalRecord is the normalized view of one FNUX document. All four
// sequences are non-nil and keep document order; later entries may
// supersede earlier ones in clinician interpretation.
type MedicalRecord struct {
	CaveEntries    []string
	Vaccinations   []Vaccination
	Diagnoses      []string
	Kontinuationer []string
}

// Vaccination is one administered vaccine. Date is YYYY-MM-DD, empty
// when the document carries no timestamp for the entry.
type Vaccination struct {
	Date string
	Name string
}
