package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/inodb/vibe-domains/internal/cache"
)

// ErrInvalidInterval is returned for amino-acid interval strings that are
// not of the form "<start>-<end>" with 1 <= start <= end.
var ErrInvalidInterval = errors.New("invalid amino acid interval")

var reInterval = regexp.MustCompile(`^(\d+)-(\d+)$`)

// Interval is a 1-based, inclusive amino-acid interval on a protein.
type Interval struct {
	Start int64
	End   int64
}

func (iv Interval) String() string {
	return fmt.Sprintf("%d-%d", iv.Start, iv.End)
}

// ParseInterval parses an amino-acid interval such as "12-140".
func ParseInterval(s string) (Interval, error) {
	m := reInterval.FindStringSubmatch(s)
	if m == nil {
		return Interval{}, fmt.Errorf("%w %q", ErrInvalidInterval, s)
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w %q: %v", ErrInvalidInterval, s, err)
	}
	end, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w %q: %v", ErrInvalidInterval, s, err)
	}
	if start < 1 || start > end {
		return Interval{}, fmt.Errorf("%w %q: need 1 <= start <= end", ErrInvalidInterval, s)
	}

	return Interval{Start: start, End: end}, nil
}

// AminoAcidLength returns the number of whole codons in a CDS segment.
// A trailing partial codon (1-2 nt) is dropped from position accounting.
func AminoAcidLength(s cache.CDSSegment) int64 {
	return s.Length() / 3
}
