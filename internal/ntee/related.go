package ntee

// relatedMajors maps a profile's major category to foundation majors that
// earn partial credit. Lookups are directional and some entries are not
// reciprocal (S lists I, I lists S and J).
var relatedMajors = map[byte][]byte{
	'A': {'B', 'N'},
	'B': {'A', 'O', 'U'},
	'C': {'D', 'K'},
	'D': {'C'},
	'E': {'F', 'G', 'H'},
	'F': {'E', 'P'},
	'G': {'E', 'H'},
	'H': {'E', 'G', 'U'},
	'I': {'S', 'J'},
	'J': {'P', 'S'},
	'K': {'C', 'P'},
	'L': {'P', 'S'},
	'M': {'P'},
	'N': {'A', 'O'},
	'O': {'B', 'P', 'N'},
	'P': {'L', 'O', 'F'},
	'Q': {'R'},
	'R': {'Q', 'W'},
	'S': {'P', 'I'},
	'T': {'S'},
	'U': {'B', 'H'},
	'V': {'U'},
	'W': {'R', 'S'},
	'X': {'P'},
	'Y': {},
	'Z': {},
}

// IsRelated reports whether foundation major f is listed for profile major p
func IsRelated(p, f byte) bool {
	for _, m := range relatedMajors[p] {
		if m == f {
			return true
		}
	}
	return false
}
