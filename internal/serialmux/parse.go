package serialmux

import "strings"

const (
	SentenceFix         = "fix"         // RMC, GGA, GLL: carry a position
	SentenceSatellites  = "satellites"  // GSA, GSV: constellation status
	SentenceProprietary = "proprietary" // $P...: vendor command replies
	SentenceUnknown     = "unknown"
)

// ClassifySentence inspects an NMEA line and returns a coarse sentence class
// from its address field. Talker IDs (GP, GN, GL, GA, BD) are ignored.
func ClassifySentence(line string) string {
	line = strings.TrimSpace(line)
	if len(line) < 6 || (line[0] != '$' && line[0] != '!') {
		return SentenceUnknown
	}
	addr := line[1:]
	if i := strings.IndexByte(addr, ','); i >= 0 {
		addr = addr[:i]
	}
	if strings.HasPrefix(addr, "P") {
		return SentenceProprietary
	}
	if len(addr) < 5 {
		return SentenceUnknown
	}
	switch addr[len(addr)-3:] {
	case "RMC", "GGA", "GLL":
		return SentenceFix
	case "GSA", "GSV":
		return SentenceSatellites
	}
	return SentenceUnknown
}
