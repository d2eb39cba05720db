// Package qa implements the built-in QA checks that inspect translated
// rows: placeholder and color-tag parity, line counts, length overflow,
// and glossary adherence. Grammar checking is an external service and is
// not implemented here; its findings arrive through the same QAResult
// tables under check type "grammar".
package qa

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lockitd/lockit/internal/types"
)

// Finding is one issue a checker raised for a row. The runner lifts
// findings into persisted QAResult records.
type Finding struct {
	Severity types.QASeverity
	Message  string
	Details  map[string]any
}

// Checker inspects a single translated row. Checkers are pure: they see
// one row and return zero or more findings.
type Checker interface {
	Type() types.QACheckType
	Check(row *types.Row) []Finding
}

// Runner applies a fixed set of checkers to rows and materializes the
// findings as unresolved QAResult records ready for bulk insert.
type Runner struct {
	checkers []Checker
}

// NewRunner builds a runner over the given checkers.
func NewRunner(checkers ...Checker) *Runner {
	return &Runner{checkers: checkers}
}

// Defaults returns the standard checker set. Glossary terms may be nil,
// in which case the term check passes everything.
func Defaults(terms []*types.GlossaryTerm) []Checker {
	return []Checker{
		PatternCheck{},
		LineCheck{},
		CharacterCheck{},
		NewTermCheck(terms),
	}
}

// Run checks every row and returns the findings as QAResult records.
// Untranslated rows (empty target) are skipped: there is nothing to
// compare yet, and flagging every pending row would bury real findings.
func (r *Runner) Run(rows []*types.Row) []*types.QAResult {
	var results []*types.QAResult
	for _, row := range rows {
		if row.Target == "" {
			continue
		}
		for _, c := range r.checkers {
			for _, f := range c.Check(row) {
				results = append(results, &types.QAResult{
					RowID:     row.ID,
					FileID:    row.FileID,
					CheckType: c.Type(),
					Severity:  f.Severity,
					Message:   f.Message,
					Details:   marshalDetails(f.Details),
				})
			}
		}
	}
	return results
}

func marshalDetails(details map[string]any) json.RawMessage {
	if len(details) == 0 {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return raw
}

// PatternCheck verifies placeholder and color-tag parity between source
// and target. Placeholders are printf-style tokens (%s, %1$d, %.2f) and
// brace tokens ({0}, {name}); color tags are the paired PAColor markup.
// Any mismatch is an error: a dropped or invented placeholder breaks the
// string at runtime.
type PatternCheck struct{}

func (PatternCheck) Type() types.QACheckType { return types.QAPattern }

func (PatternCheck) Check(row *types.Row) []Finding {
	var findings []Finding

	missing, extra := comparePlaceholders(row.Source, row.Target)
	if len(missing) > 0 || len(extra) > 0 {
		details := map[string]any{}
		if len(missing) > 0 {
			details["missing"] = missing
		}
		if len(extra) > 0 {
			details["extra"] = extra
		}
		findings = append(findings, Finding{
			Severity: types.QAError,
			Message:  "placeholder mismatch between source and target",
			Details:  details,
		})
	}

	srcRuns, srcErr := colorRuns(row.Source)
	tgtRuns, tgtErr := colorRuns(row.Target)
	if srcErr != nil || tgtErr != nil {
		err := srcErr
		side := "source"
		if err == nil {
			err = tgtErr
			side = "target"
		}
		findings = append(findings, Finding{
			Severity: types.QAError,
			Message:  fmt.Sprintf("malformed color markup in %s: %v", side, err),
		})
		return findings
	}
	if missing, extra := diffCounts(srcRuns, tgtRuns); len(missing) > 0 || len(extra) > 0 {
		details := map[string]any{}
		if len(missing) > 0 {
			details["missing_colors"] = missing
		}
		if len(extra) > 0 {
			details["extra_colors"] = extra
		}
		findings = append(findings, Finding{
			Severity: types.QAError,
			Message:  "color tag mismatch between source and target",
			Details:  details,
		})
	}
	return findings
}

// placeholderTokens extracts printf-style and brace placeholders in
// order of appearance. %% is a literal percent and is skipped.
func placeholderTokens(s string) []string {
	var tokens []string
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+1 < len(s) && s[i+1] == '%' {
				i++
				continue
			}
			j := i + 1
			for j < len(s) && strings.ContainsRune("0123456789.$+- #", rune(s[j])) {
				j++
			}
			if j < len(s) && isVerb(s[j]) {
				tokens = append(tokens, s[i:j+1])
				i = j
			}
		case '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				continue
			}
			inner := s[i+1 : i+end]
			if inner != "" && !strings.ContainsAny(inner, " {") {
				tokens = append(tokens, s[i:i+end+1])
				i += end
			}
		}
	}
	return tokens
}

func isVerb(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// comparePlaceholders diffs the two token multisets. Order is not
// compared: translations legitimately reorder arguments.
func comparePlaceholders(source, target string) (missing, extra []string) {
	return diffCounts(placeholderTokens(source), placeholderTokens(target))
}

func diffCounts(source, target []string) (missing, extra []string) {
	counts := map[string]int{}
	for _, t := range source {
		counts[t]++
	}
	for _, t := range target {
		counts[t]--
	}
	for _, t := range source {
		if counts[t] > 0 {
			missing = append(missing, t)
			counts[t] = 0
		}
	}
	counts = map[string]int{}
	for _, t := range target {
		counts[t]++
	}
	for _, t := range source {
		counts[t]--
	}
	for _, t := range target {
		if counts[t] > 0 {
			extra = append(extra, t)
			counts[t] = 0
		}
	}
	return missing, extra
}

// Color markup markers. A run opens with <PAColor0xAARRGGBB> and closes
// with <PAColorEnd>. Runs do not nest.
const (
	colorOpenPrefix = "<PAColor0x"
	colorClose      = "<PAColorEnd>"
)

// colorRuns tokenizes the paired color markup and returns the color code
// of each run in order. A trailing run with no close marker is
// implicitly closed at end-of-string and is not an error; a close marker
// with no open run, or a nested open, is malformed.
func colorRuns(s string) ([]string, error) {
	var runs []string
	open := false
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], colorClose) {
			if !open {
				return nil, fmt.Errorf("close marker at offset %d without an open run", i)
			}
			open = false
			i += len(colorClose)
			continue
		}
		if strings.HasPrefix(s[i:], colorOpenPrefix) {
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated color marker at offset %d", i)
			}
			if open {
				return nil, fmt.Errorf("nested color run at offset %d", i)
			}
			code := s[i+len(colorOpenPrefix) : i+end]
			if len(code) != 8 || !isHex(code) {
				return nil, fmt.Errorf("bad color code %q at offset %d", code, i)
			}
			runs = append(runs, strings.ToUpper(code))
			open = true
			i += end + 1
			continue
		}
		i++
	}
	// A trailing open run is implicitly closed at end-of-string.
	return runs, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// LineCheck flags a line-count mismatch between source and target.
// Multi-line strings usually map onto fixed UI layouts, so a dropped or
// added line is suspicious but not always wrong.
type LineCheck struct{}

func (LineCheck) Type() types.QACheckType { return types.QALine }

func (LineCheck) Check(row *types.Row) []Finding {
	src := strings.Count(row.Source, "\n") + 1
	tgt := strings.Count(row.Target, "\n") + 1
	if src == tgt {
		return nil
	}
	return []Finding{{
		Severity: types.QAWarning,
		Message:  fmt.Sprintf("line count mismatch: source has %d, target has %d", src, tgt),
		Details:  map[string]any{"source_lines": src, "target_lines": tgt},
	}}
}

// CharacterCheck flags targets that overflow the source length budget.
// UI strings have finite room; a translation far longer than its source
// usually truncates on screen. The budget is Ratio times the source rune
// count plus Slack, so short sources keep headroom.
type CharacterCheck struct {
	// Ratio is the allowed expansion factor. Zero means the default 2.0.
	Ratio float64

	// Slack is the flat rune allowance added on top. Zero means the
	// default 10.
	Slack int
}

func (CharacterCheck) Type() types.QACheckType { return types.QACharacter }

func (c CharacterCheck) Check(row *types.Row) []Finding {
	ratio := c.Ratio
	if ratio <= 0 {
		ratio = 2.0
	}
	slack := c.Slack
	if slack <= 0 {
		slack = 10
	}
	src := utf8.RuneCountInString(row.Source)
	tgt := utf8.RuneCountInString(row.Target)
	limit := int(float64(src)*ratio) + slack
	if tgt <= limit {
		return nil
	}
	return []Finding{{
		Severity: types.QAWarning,
		Message:  fmt.Sprintf("target length %d exceeds limit %d (source length %d)", tgt, limit, src),
		Details:  map[string]any{"source_length": src, "target_length": tgt, "limit": limit},
	}}
}

// TermCheck verifies glossary adherence: when a glossary source term
// appears in the row's source, the mandated target term must appear in
// the translation. Matching is case-insensitive on normalized text.
type TermCheck struct {
	terms []*types.GlossaryTerm
}

// NewTermCheck builds a term checker over the given glossary. A nil or
// empty glossary passes every row.
func NewTermCheck(terms []*types.GlossaryTerm) TermCheck {
	return TermCheck{terms: terms}
}

func (TermCheck) Type() types.QACheckType { return types.QATerm }

func (c TermCheck) Check(row *types.Row) []Finding {
	var findings []Finding
	source := strings.ToLower(types.NormalizeSource(row.Source))
	target := strings.ToLower(types.NormalizeSource(row.Target))
	for _, term := range c.terms {
		want := strings.ToLower(types.NormalizeSource(term.Source))
		if want == "" || !strings.Contains(source, want) {
			continue
		}
		mandated := strings.ToLower(types.NormalizeSource(term.Target))
		if mandated == "" || strings.Contains(target, mandated) {
			continue
		}
		findings = append(findings, Finding{
			Severity: types.QAWarning,
			Message:  fmt.Sprintf("glossary term %q must be translated as %q", term.Source, term.Target),
			Details:  map[string]any{"term_source": term.Source, "term_target": term.Target, "tm_id": term.TMID},
		})
	}
	return findings
}
