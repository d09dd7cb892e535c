// Package redact strips credential-shaped data from a serialized document
// before it leaves the process.
//
// Two passes run over the JSON tree:
//   - object keys named like a credential are removed with their value
//   - string values are scanned for known token prefixes and the token run is blanked
package redact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/ahocorasick"
)

// CredentialFields are the object keys treated as credential-shaped,
// compared case-insensitively with "_" and "-" ignored.
var CredentialFields = []string{
	"githubtoken",
	"token",
	"accesstoken",
	"authtoken",
	"pat",
	"apikey",
	"password",
	"secret",
	"clientsecret",
	"authorization",
	"credential",
	"credentials",
	"privatekey",
}

// tokenPrefix describes a secret format: a literal prefix followed by at
// least minTail token characters. Only the GitHub formats the store can
// hold are listed; broader patterns match ordinary URL slugs.
type tokenPrefix struct {
	prefix  string
	minTail int
}

var tokenPrefixes = []tokenPrefix{
	{"ghp_", 30},
	{"gho_", 30},
	{"ghu_", 30},
	{"ghs_", 30},
	{"ghr_", 30},
	{"github_pat_", 20},
}

// Report lists what a Redactor removed.
type Report struct {
	// Fields are JSON paths of removed credential-shaped keys.
	Fields []string
	// Values counts blanked secret-looking substrings.
	Values int
}

// Empty reports whether nothing was redacted.
func (r Report) Empty() bool {
	return len(r.Fields) == 0 && r.Values == 0
}

// Redactor is safe for concurrent use once built.
type Redactor struct {
	fields map[string]struct{}
	ac     *ahocorasick.Automaton
}

// New builds a Redactor for the default field list and token prefixes.
func New() (*Redactor, error) {
	patterns := make([]string, len(tokenPrefixes))
	for i, p := range tokenPrefixes {
		patterns[i] = p.prefix
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("redact: build automaton: %w", err)
	}

	fields := make(map[string]struct{}, len(CredentialFields))
	for _, f := range CredentialFields {
		fields[f] = struct{}{}
	}
	return &Redactor{fields: fields, ac: automaton}, nil
}

// MustNew is New for package-level initialization.
func MustNew() *Redactor {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// JSON returns data with credential-shaped keys and values removed. When
// nothing matches, data is returned unchanged (same bytes, same key order).
// When something is removed the tree is re-encoded with two-space
// indentation and sorted object keys.
func (r *Redactor) JSON(data []byte) ([]byte, Report, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, Report{}, fmt.Errorf("redact: decode: %w", err)
	}

	var report Report
	tree = r.walk(tree, "$", &report)
	if report.Empty() {
		return data, report, nil
	}

	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, report, fmt.Errorf("redact: encode: %w", err)
	}
	sort.Strings(report.Fields)
	return out, report, nil
}

// IsCredentialField reports whether key names a credential.
func (r *Redactor) IsCredentialField(key string) bool {
	_, ok := r.fields[normalizeKey(key)]
	return ok
}

func (r *Redactor) walk(node any, path string, report *Report) any {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			childPath := path + "." + key
			if r.IsCredentialField(key) {
				delete(v, key)
				report.Fields = append(report.Fields, childPath)
				continue
			}
			v[key] = r.walk(child, childPath, report)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = r.walk(child, fmt.Sprintf("%s[%d]", path, i), report)
		}
		return v
	case string:
		cleaned, n := r.String(v)
		report.Values += n
		return cleaned
	default:
		return v
	}
}

// String blanks every secret-looking token in s and returns how many it
// removed.
func (r *Redactor) String(s string) (string, int) {
	matches := r.ac.FindAllOverlapping([]byte(s))
	if len(matches) == 0 {
		return s, 0
	}

	type span struct{ start, end int }
	var spans []span
	for _, m := range matches {
		p := tokenPrefixes[m.PatternID]
		if m.Start > 0 && isTokenByte(s[m.Start-1]) {
			continue
		}
		end := m.End
		for end < len(s) && isTokenByte(s[end]) {
			end++
		}
		if end-m.End < p.minTail {
			continue
		}
		spans = append(spans, span{m.Start, end})
	}
	if len(spans) == 0 {
		return s, 0
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last, removed := 0, 0
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		b.WriteString(s[last:sp.start])
		last = sp.end
		removed++
	}
	b.WriteString(s[last:])
	return b.String(), removed
}

// isTokenByte matches the GitHub token alphabet. '-' is excluded so a
// token ends at a hyphen.
func isTokenByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	return strings.ReplaceAll(key, "-", "")
}
