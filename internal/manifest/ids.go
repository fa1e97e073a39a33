package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Identifier prefixes.
const (
	CropIDPrefix = "card"
	ScanIDPrefix = "scan"
)

// ErrMalformedID is returned when a stored identifier is not <prefix>_<number>.
var ErrMalformedID = errors.New("malformed identifier")

// FormatID renders prefix_NNNN.
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s_%04d", prefix, n)
}

// ParseID returns the numeric part of prefix_NNNN.
func ParseID(prefix, id string) (int, error) {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok || rest == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return n, nil
}

// NextCropID returns one past the highest crop number in the log, starting at card_0001.
func (l *Log) NextCropID() (string, error) {
	crops, err := l.Crops()
	if err != nil {
		return "", err
	}
	ids := make([]string, len(crops))
	for i, c := range crops {
		ids[i] = c.CropID
	}
	return nextID(CropIDPrefix, ids)
}

// NextScanID returns one past the highest scan number in the log, starting
// at scan_0001. Scans referenced only by crop records count too, so scans
// extracted without being registered still get distinct identifiers.
func (l *Log) NextScanID() (string, error) {
	records, err := l.ReadAll()
	if err != nil {
		return "", err
	}
	var ids []string
	for _, r := range records {
		switch rec := r.(type) {
		case ScanMeta:
			ids = append(ids, rec.ScanID)
		case CardCropMeta:
			if _, err := ParseID(ScanIDPrefix, rec.SourceScanID); err == nil {
				ids = append(ids, rec.SourceScanID)
			}
		}
	}
	return nextID(ScanIDPrefix, ids)
}

func nextID(prefix string, ids []string) (string, error) {
	highest := 0
	for _, id := range ids {
		n, err := ParseID(prefix, id)
		if err != nil {
			return "", err
		}
		highest = max(highest, n)
	}
	return FormatID(prefix, highest+1), nil
}
