// Package prompt renders a medical record into the payload for one
// summary call.
package prompt

import (
	"strings"

	"fnuxsummary/internal/config"
	"fnuxsummary/internal/domain"
)

// Section headers and empty markers keep the Danish wording of the
// report contract the summary prompts were written against. An empty
// section renders its marker so the model reads "none recorded" instead
// of inferring missing data.
const (
	caveHeader = "### Cave-informationer:"
	vaccHeader = "### Vaccinationshistorik:"
	diagHeader = "### Diagnosekoder:"
	kontHeader = "### Kontinuationer:"

	noCave = "Ingen registrerede cave-oplysninger"
	noVacc = "Ingen registrerede vaccinationer"
	noDiag = "Ingen registrerede diagnoser"
	noKont = "Ingen registrerede kontinuationer"
)

// Request is the fully rendered payload for one summary call. It is
// ephemeral: built per call, never persisted.
type Request struct {
	System string
	User   string
}

// Build renders record into the fixed four-section user prompt followed
// by the configured format instructions. It is a pure function:
// identical inputs produce byte-identical requests.
func Build(record domain.MedicalRecord, cfg config.LLM) Request {
	var b strings.Builder

	writeSection(&b, caveHeader, record.CaveEntries, noCave)
	writeSection(&b, vaccHeader, vaccinationLines(record.Vaccinations), noVacc)
	writeSection(&b, diagHeader, record.Diagnoses, noDiag)
	writeSection(&b, kontHeader, record.Kontinuationer, noKont)

	b.WriteString("\n")
	b.WriteString(cfg.Prompt.FormatInstructions)

	return Request{
		System: cfg.Prompt.SystemMessage,
		User:   b.String(),
	}
}

func writeSection(b *strings.Builder, header string, items []string, emptyMarker string) {
	b.WriteString(header)
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString(emptyMarker)
		b.WriteString("\n")

		return
	}

	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func vaccinationLines(vaccinations []domain.Vaccination) []string {
	lines := make([]string, 0, len(vaccinations))
	for _, v := range vaccinations {
		if v.Date != "" {
			lines = append(lines, v.Date+": "+v.Name)
		} else {
			lines = append(lines, v.Name)
		}
	}

	return lines
}
