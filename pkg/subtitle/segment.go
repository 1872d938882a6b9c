// Package subtitle implements SRT parsing/formatting, the content
// fingerprint used for catalogue lookups, and subtitle/checkpoint path
// derivation.
package subtitle

// Segment is a single subtitle block: an index, a start/end timestamp, and
// one or more lines of text. Immutable once parsed.
//
// Start and End are kept as the original "HH:MM:SS,mmm" strings rather than
// a numeric duration: the byte-exact round-trip invariant is trivially true
// this way, and nothing in the pipeline needs to do arithmetic on them.
type Segment struct {
	Index int
	Start string
	End   string
	Text  string
}

// Segments is an ordered list of Segment, sorted by parse order (SRT files
// are not required to be numerically ordered by index, but in practice
// always are).
type Segments []Segment

// Texts extracts just the text of each segment, in order, for handing to a
// translation call.
func (s Segments) Texts() []string {
	out := make([]string, len(s))
	for i, seg := range s {
		out[i] = seg.Text
	}
	return out
}
