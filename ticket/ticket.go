// Package ticket derives human-readable task identifiers of the form
// PREFIX-SEQ from a project name and the set of already-issued identifiers.
// Allocation is client-computable on purpose: no central sequence authority
// is required, and the persistence layer remains the final arbiter of
// uniqueness when two allocators race on the same prefix.
package ticket

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// prefixMin is the floor length of a derived prefix; shorter inputs are
	// padded with padRune so every prefix is at least three letters.
	prefixMin = 3
	prefixMax = 4
	padRune   = 'X'

	// seqWidth is the zero-pad floor for the sequence segment. It is a floor,
	// not a ceiling: the 1000th ticket under a prefix gets a 4-digit suffix.
	seqWidth = 3
)

// DerivePrefix reduces a project display name to a 3-4 letter uppercase code.
// Every character outside [A-Za-z] is dropped, the remainder is uppercased
// and truncated to four letters; results shorter than three letters are
// right-padded with 'X'. Total over all inputs: the empty string yields "XXX".
func DerivePrefix(projectName string) string {
	var b strings.Builder
	for _, r := range projectName {
		if b.Len() == prefixMax {
			break
		}
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	prefix := b.String()
	for len(prefix) < prefixMin {
		prefix += string(padRune)
	}
	return prefix
}

// Next computes the next ticket number for a project given every ticket
// number already issued across the system. Entries under other prefixes and
// entries whose suffix does not parse as a decimal integer are ignored rather
// than rejected. The result is PREFIX-SEQ with SEQ = max(existing)+1, or 001
// when the prefix has no issued tickets yet.
//
// Next is pure: the caller persists the returned value so it shows up in
// future existing sets. Two concurrent callers that have not seen each
// other's allocation can compute the same number; the storage layer must
// reject the duplicate insert (see tasks table unique constraint).
func Next(projectName string, existing []string) string {
	prefix := DerivePrefix(projectName)

	counter := 1
	for _, issued := range existing {
		rest, ok := strings.CutPrefix(issued, prefix+"-")
		if !ok {
			continue
		}
		// Split again so PROJ-1-2 style entries resolve on their trailing
		// segment, matching how issued numbers are re-parsed after edits.
		segments := strings.Split(rest, "-")
		n, err := strconv.Atoi(segments[len(segments)-1])
		if err != nil || n < 0 {
			continue
		}
		if n+1 > counter {
			counter = n + 1
		}
	}

	return fmt.Sprintf("%s-%0*d", prefix, seqWidth, counter)
}

// Belongs reports whether ticketNumber is a well-formed number under the
// prefix derived from projectName: the derived prefix, a dash, and a decimal
// sequence. Anything else, including a matching prefix with a non-numeric
// suffix, is not a valid member of the namespace.
func Belongs(ticketNumber, projectName string) bool {
	seq, ok := strings.CutPrefix(ticketNumber, DerivePrefix(projectName)+"-")
	if !ok || seq == "" {
		return false
	}
	for _, r := range seq {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
