package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnuxsummary/internal/config"
	"fnuxsummary/internal/domain"
)

var testLLM = config.LLM{
	Prompt: config.Prompt{
		SystemMessage:      "You are a clinical summarizer.",
		FormatInstructions: "Answer with a delimited report section.",
	},
}

func TestBuildIsDeterministic(t *testing.T) {
	record := domain.MedicalRecord{
		CaveEntries:    []string{"Penicillin allergy"},
		Vaccinations:   []domain.Vaccination{{Date: "2024-01-24", Name: "Influenza"}},
		Diagnoses:      []string{"Hypertension"},
		Kontinuationer: []string{"Follow-up in 3 months"},
	}

	first := Build(record, testLLM)
	second := Build(record, testLLM)

	assert.Equal(t, first, second)
}

func TestBuildSectionOrder(t *testing.T) {
	record := domain.MedicalRecord{
		CaveEntries:    []string{"Penicillin allergy"},
		Vaccinations:   []domain.Vaccination{},
		Diagnoses:      []string{"Hypertension"},
		Kontinuationer: []string{"Follow-up in 3 months"},
	}

	req := Build(record, testLLM)

	cave := strings.Index(req.User, "### Cave-informationer:")
	vacc := strings.Index(req.User, "### Vaccinationshistorik:")
	diag := strings.Index(req.User, "### Diagnosekoder:")
	kont := strings.Index(req.User, "### Kontinuationer:")

	require.GreaterOrEqual(t, cave, 0)
	assert.Less(t, cave, vacc)
	assert.Less(t, vacc, diag)
	assert.Less(t, diag, kont)

	assert.Contains(t, req.User, "- Penicillin allergy")
	assert.Contains(t, req.User, "- Hypertension")
	assert.Contains(t, req.User, "- Follow-up in 3 months")
	assert.Contains(t, req.User, "Ingen registrerede vaccinationer")
	assert.True(t, strings.HasSuffix(req.User, "Answer with a delimited report section."))

	assert.Equal(t, "You are a clinical summarizer.", req.System)
}

func TestBuildEmptyRecordRendersAllMarkers(t *testing.T) {
	req := Build(domain.MedicalRecord{}, testLLM)

	assert.Contains(t, req.User, "Ingen registrerede cave-oplysninger")
	assert.Contains(t, req.User, "Ingen registrerede vaccinationer")
	assert.Contains(t, req.User, "Ingen registrerede diagnoser")
	assert.Contains(t, req.User, "Ingen registrerede kontinuationer")
}

func TestBuildVaccinationLines(t *testing.T) {
	record := domain.MedicalRecord{
		Vaccinations: []domain.Vaccination{
			{Date: "2024-01-24", Name: "Influenza"},
			{Name: "Tetanus"},
		},
	}

	req := Build(record, testLLM)

	assert.Contains(t, req.User, "- 2024-01-24: Influenza")
	assert.Contains(t, req.User, "- Tetanus")
}
