package domain

import "sort"

// Correction is one requested edit produced by a critique.
type Correction struct {
	// Original is the excerpt of the draft being corrected.
	Original string `json:"original" validate:"required"`
	// Corrected is the replacement text.
	Corrected string `json:"corrected" validate:"required"`
	// Reasoning explains why the correction is needed.
	Reasoning string `json:"reasoning"`
}

// CritiqueKind discriminates the variants of CritiqueResult.
type CritiqueKind int

const (
	// CritiqueAllGood means the critic found nothing to correct.
	CritiqueAllGood CritiqueKind = iota
	// CritiqueCorrections means the critic returned per-topic corrections.
	CritiqueCorrections
	// CritiqueMalformed means the critic output could not be parsed. It is
	// consumed only by the retry-until-valid policy.
	CritiqueMalformed
)

// String returns a readable name for the kind.
func (k CritiqueKind) String() string {
	switch k {
	case CritiqueAllGood:
		return "all_good"
	case CritiqueCorrections:
		return "corrections"
	case CritiqueMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// CritiqueResult is the outcome of a critique call. Exactly one variant is
// meaningful, selected by Kind, and it is decided once by the parser.
type CritiqueResult struct {
	Kind CritiqueKind

	// Corrections maps a topic label, as written by the critic, to its
	// ordered corrections. Set only for CritiqueCorrections.
	Corrections map[string][]Correction

	// Invalid maps a topic label to the raw payload the critic returned for
	// it when that payload was not a proper correction list. Set only for
	// CritiqueCorrections.
	Invalid map[string]string

	// Raw holds the unparsed model output. Set only for CritiqueMalformed.
	Raw string
}

// AllGood returns the all-good variant.
func AllGood() CritiqueResult {
	return CritiqueResult{Kind: CritiqueAllGood}
}

// Malformed returns the malformed-output marker carrying raw.
func Malformed(raw string) CritiqueResult {
	return CritiqueResult{Kind: CritiqueMalformed, Raw: raw}
}

// CorrectionsResult returns the corrections variant. When no label carries a
// correction and none is invalid the all-good variant is returned instead.
func CorrectionsResult(corrections map[string][]Correction, invalid map[string]string) CritiqueResult {
	pending := 0
	for _, list := range corrections {
		pending += len(list)
	}
	if pending == 0 && len(invalid) == 0 {
		return AllGood()
	}
	return CritiqueResult{Kind: CritiqueCorrections, Corrections: corrections, Invalid: invalid}
}

// IsMalformed reports whether the result is the malformed-output marker.
func (r CritiqueResult) IsMalformed() bool { return r.Kind == CritiqueMalformed }

// Labels returns the labels that carry at least one correction, sorted.
func (r CritiqueResult) Labels() []string {
	labels := make([]string, 0, len(r.Corrections))
	for label, list := range r.Corrections {
		if len(list) > 0 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// TotalCorrections returns the number of corrections across all topics.
func (r CritiqueResult) TotalCorrections() int {
	n := 0
	for _, list := range r.Corrections {
		n += len(list)
	}
	return n
}
