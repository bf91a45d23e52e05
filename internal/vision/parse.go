package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const IdentifyPrompt = `Identify the device or item in this photo. Respond with a single JSON object and nothing else, using exactly these keys:
{"brand": string, "model": string, "modelNumber": string, "category": string, "releaseYear": number, "specifications": {string: string}, "commonIssues": [string], "repairabilityScore": number from 1 to 10, "confidence": number from 0 to 1}
Use an empty string or 0 for anything you cannot determine.`

const OCRPrompt = `List every piece of text visible on labels, stickers, or engravings in this photo, such as model numbers and serial numbers. Reply with the raw text only, one label per line.`

// Identity is a structured device identification.
type Identity struct {
	Brand              string            `json:"brand"`
	Model              string            `json:"model"`
	ModelNumber        string            `json:"modelNumber,omitempty"`
	Category           string            `json:"category"`
	ReleaseYear        int               `json:"releaseYear,omitempty"`
	Specifications     map[string]string `json:"specifications,omitempty"`
	CommonIssues       []string          `json:"commonIssues,omitempty"`
	RepairabilityScore int               `json:"repairabilityScore,omitempty"`
	Confidence         float64           `json:"confidence"`
}

// Placeholder is returned when the model reply cannot be parsed.
func Placeholder() Identity {
	return Identity{
		Brand:      "Unknown",
		Model:      "Unidentified Device",
		Category:   "unknown",
		Confidence: 0.1,
	}
}

// Normalize clamps confidence to [0,1] and repairability to [1,10].
func (id *Identity) Normalize() {
	if math.IsNaN(id.Confidence) {
		id.Confidence = 0
	}
	id.Confidence = math.Min(1, math.Max(0, id.Confidence))
	if id.RepairabilityScore != 0 {
		id.RepairabilityScore = min(10, max(1, id.RepairabilityScore))
	}
	id.Brand = strings.TrimSpace(id.Brand)
	id.Model = strings.TrimSpace(id.Model)
	id.ModelNumber = strings.TrimSpace(id.ModelNumber)
	id.Category = strings.ToLower(strings.TrimSpace(id.Category))
	if id.Category == "" {
		id.Category = "unknown"
	}
}

// rawIdentity accepts the loose typing models tend to produce.
type rawIdentity struct {
	Brand              string                 `json:"brand"`
	Model              string                 `json:"model"`
	ModelNumber        interface{}            `json:"modelNumber"`
	Category           string                 `json:"category"`
	ReleaseYear        interface{}            `json:"releaseYear"`
	Specifications     map[string]interface{} `json:"specifications"`
	CommonIssues       []interface{}          `json:"commonIssues"`
	RepairabilityScore interface{}            `json:"repairabilityScore"`
	Confidence         interface{}            `json:"confidence"`
}

// ParseIdentity reads the first balanced JSON object in text. ok is false
// when no usable object was found, in which case the placeholder is returned.
func ParseIdentity(text string) (Identity, bool) {
	obj, found := ExtractJSONObject(text)
	if !found {
		return Placeholder(), false
	}

	var raw rawIdentity
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Placeholder(), false
	}
	if strings.TrimSpace(raw.Brand) == "" && strings.TrimSpace(raw.Model) == "" && strings.TrimSpace(raw.Category) == "" {
		return Placeholder(), false
	}

	id := Identity{
		Brand:              raw.Brand,
		Model:              raw.Model,
		ModelNumber:        toString(raw.ModelNumber),
		Category:           raw.Category,
		ReleaseYear:        int(toFloat(raw.ReleaseYear)),
		RepairabilityScore: int(math.Round(toFloat(raw.RepairabilityScore))),
		Confidence:         toFloat(raw.Confidence),
	}
	if len(raw.Specifications) > 0 {
		id.Specifications = make(map[string]string, len(raw.Specifications))
		for k, v := range raw.Specifications {
			if s := toString(v); s != "" {
				id.Specifications[k] = s
			}
		}
	}
	for _, issue := range raw.CommonIssues {
		if s := toString(issue); s != "" {
			id.CommonIssues = append(id.CommonIssues, s)
		}
	}
	id.Normalize()
	return id, true
}

// ExtractJSONObject returns the first balanced {...} substring of s that is
// valid JSON. Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := balancedEnd(s, start); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing s[start], or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var modelNumberPattern = regexp.MustCompile(`^[A-Z0-9]{2,}(?:[-/][A-Z0-9]{2,})*$`)

// ExtractModelNumber returns the first label token that looks like a model
// or part number: upper-case alphanumeric groups joined by - or /, containing
// at least one letter and one digit, 4 to 30 characters long.
func ExtractModelNumber(text string) string {
	for _, field := range strings.Fields(text) {
		token := strings.Trim(field, ".,;:()[]{}\"'`")
		if len(token) < 4 || len(token) > 30 {
			continue
		}
		if !modelNumberPattern.MatchString(token) {
			continue
		}
		if strings.ContainsAny(token, "0123456789") && strings.ContainsAny(token, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			return token
		}
	}
	return ""
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(t, "%")), 64)
		if err != nil {
			return 0
		}
		if strings.HasSuffix(t, "%") {
			f /= 100
		}
		return f
	default:
		return 0
	}
}
