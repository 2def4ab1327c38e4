package pdf

import (
	"regexp"
	"strings"
)

// Patterns are tried in priority order; the first one that matches anywhere wins.
// Matching is case-insensitive while the capture keeps the original casing.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)patient\s+name\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)patient\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)name\s*:\s*([^\n\r]+)`),
	}

	dobPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)dob\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)date\s+of\s+birth\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)birth\s+date\s*:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)born\s*:\s*([^\n\r]+)`),
	}

	// OCR noise: anything that is not a digit, slash, hyphen or whitespace.
	dobNoise = regexp.MustCompile(`[^\d/\-\s]`)
)

// ParseClinical extracts patient name and date of birth from free text.
// It never fails; fields that are not found stay empty.
func ParseClinical(text string) ClinicalData {
	data := ClinicalData{ExtractionConfidence: ConfidenceLow}
	if text == "" {
		return data
	}

	if fullName, ok := firstCapture(namePatterns, text); ok {
		fullName = strings.TrimSpace(fullName)
		data.PatientName.FullName = fullName

		parts := strings.Fields(fullName)
		switch {
		case len(parts) >= 2:
			data.PatientName.FirstName = parts[0]
			data.PatientName.LastName = strings.Join(parts[1:], " ")
		case len(parts) == 1:
			data.PatientName.FirstName = parts[0]
		}
	}

	if dob, ok := firstCapture(dobPatterns, text); ok {
		dob = dobNoise.ReplaceAllString(strings.TrimSpace(dob), "")
		data.DateOfBirth = strings.TrimSpace(dob)
	}

	found := 0
	if data.PatientName.FullName != "" {
		found++
	}
	if data.DateOfBirth != "" {
		found++
	}
	switch found {
	case 2:
		data.ExtractionConfidence = ConfidenceHigh
	case 1:
		data.ExtractionConfidence = ConfidenceMedium
	default:
		data.ExtractionConfidence = ConfidenceLow
	}

	return data
}

// firstCapture returns group 1 of the first pattern that matches.
func firstCapture(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatchIndex(text); m != nil {
			return text[m[2]:m[3]], true
		}
	}
	return "", false
}
