package fnux

import (
	"fmt"
	"strings"

	"fnuxsummary/internal/domain"
)

// EgneNoterKode value marking a continuation note.
const noteKindKontinuation = "Kontinuation"

// sections maps each logical record section to its FNUX collection tag
// and collector. Tags are matched on local name only, at any depth, so
// namespace prefixes and duplicated sections are handled uniformly.
var sections = []struct {
	tag     string
	collect func(rec *domain.MedicalRecord, samling *Element)
}{
	{"CaveSamling", collectCave},
	{"VaccinationSamling", collectVaccinations},
	{"DiagnoseSamling", collectDiagnoses},
	{"NoteSamling", collectKontinuationer},
}

// Extract maps a parsed FNUX document into a MedicalRecord. It never
// fails on well-formed input: clinical documents vary in which sections
// are populated, so unrecognized or missing sections degrade to empty
// sequences.
func Extract(root *Element) domain.MedicalRecord {
	rec := domain.MedicalRecord{
		CaveEntries:    []string{},
		Vaccinations:   []domain.Vaccination{},
		Diagnoses:      []string{},
		Kontinuationer: []string{},
	}

	for _, section := range sections {
		for _, samling := range findAll(root, section.tag) {
			section.collect(&rec, samling)
		}
	}

	return rec
}

// collectCave gathers the free-text precaution lines of one CaveSamling.
func collectCave(rec *domain.MedicalRecord, samling *Element) {
	for _, strukt := range children(samling, "CaveStruktur") {
		for _, linjer := range children(strukt, "KommentarLinieSamling") {
			for _, line := range children(linjer, "LinieTekst") {
				if text := textOf(line); text != "" {
					rec.CaveEntries = append(rec.CaveEntries, text)
				}
			}
		}
	}
}

// collectVaccinations gathers vaccination entries. The vaccine name is
// required; a missing DatoTid drops the date, not the entry.
func collectVaccinations(rec *domain.MedicalRecord, samling *Element) {
	for _, strukt := range children(samling, "VaccinationStruktur") {
		name := firstDescendant(strukt, "VaccinationNavn")
		if name == nil || textOf(name) == "" {
			continue
		}

		v := domain.Vaccination{Name: textOf(name)}
		if date := firstDescendant(strukt, "DatoTid"); date != nil {
			v.Date = datePart(textOf(date))
		}

		rec.Vaccinations = append(rec.Vaccinations, v)
	}
}

// collectDiagnoses gathers coded diagnoses. A KodeStruktur carries
// parallel lists of classification ids, codes, and code texts; complete
// triples render as "<id> <code>: <text>", a lone code text degrades to
// just the text.
func collectDiagnoses(rec *domain.MedicalRecord, samling *Element) {
	for _, strukt := range children(samling, "DiagnoseStruktur") {
		for _, kode := range children(strukt, "KodeStruktur") {
			ids := children(kode, "KlassifikationsIdentifikator")
			koder := children(kode, "Kode")
			tekster := children(kode, "KodeTekst")

			for i, tekst := range tekster {
				text := textOf(tekst)
				if text == "" {
					continue
				}

				if i < len(ids) && i < len(koder) {
					id, kd := textOf(ids[i]), textOf(koder[i])
					if id != "" && kd != "" {
						rec.Diagnoses = append(rec.Diagnoses, fmt.Sprintf("%s %s: %s", id, kd, text))
						continue
					}
				}

				rec.Diagnoses = append(rec.Diagnoses, text)
			}
		}
	}
}

// collectKontinuationer gathers continuation notes. NoteStruktur holds
// parallel DatoTid/Tekst/EgneNoterKode lists; only entries labeled
// Kontinuation qualify, except that documents which never label their
// notes are taken as-is.
func collectKontinuationer(rec *domain.MedicalRecord, samling *Element) {
	for _, note := range children(samling, "NoteStruktur") {
		kinds := children(note, "EgneNoterKode")
		texts := children(note, "Tekst")
		dates := children(note, "DatoTid")

		for i, tekst := range texts {
			if len(kinds) > 0 {
				if i >= len(kinds) || textOf(kinds[i]) != noteKindKontinuation {
					continue
				}
			}

			text := noteText(tekst)
			if text == "" {
				continue
			}

			entry := text
			if i < len(dates) {
				if d := datePart(textOf(dates[i])); d != "" {
					entry = d + ": " + text
				}
			}

			rec.Kontinuationer = append(rec.Kontinuationer, entry)
		}
	}
}

// noteText assembles a note's text from its word-processing runs ("t"
// elements), joined by single spaces. Notes without runs carry their
// text directly on the Tekst element.
func noteText(tekst *Element) string {
	var parts []string
	for _, run := range findAll(tekst, "t") {
		if s := textOf(run); s != "" {
			parts = append(parts, s)
		}
	}

	if len(parts) == 0 {
		return textOf(tekst)
	}

	return strings.Join(parts, " ")
}

// datePart reduces a DatoTid timestamp (2024-01-24T10:00:00Z) to its
// date part.
func datePart(datotid string) string {
	date, _, _ := strings.Cut(datotid, "T")

	return date
}
