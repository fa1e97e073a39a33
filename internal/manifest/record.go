// Package manifest reads and appends the deck's JSONL record log. Every line
// is one tagged record: a scan, a card crop or a classification.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordType is the value of the "type" discriminant on every log line.
type RecordType string

const (
	TypeScan  RecordType = "scan"
	TypeCrop  RecordType = "crop"
	TypeClass RecordType = "class"
)

// ErrUnknownRecordType is returned for a line whose "type" is missing or not recognised.
var ErrUnknownRecordType = errors.New("unknown record type")

// Record is implemented by ScanMeta, CardCropMeta and ClassRecord only.
type Record interface {
	Type() RecordType
	isRecord()
}

// Timestamp is a time that also parses the zone-less ISO 8601 form written
// by earlier versions of the log (interpreted as local time).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

// MarshalJSON writes RFC 3339 with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO 8601.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for i, layout := range timestampLayouts {
		var parsed time.Time
		var err error
		if i == 0 {
			parsed, err = time.Parse(layout, s)
		} else {
			parsed, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// ScanMeta describes one full flatbed scan.
type ScanMeta struct {
	ScanID    string    `json:"scan_id"`
	File      string    `json:"file"`
	Timestamp Timestamp `json:"timestamp"`
	DPI       int       `json:"dpi"`
	Device    string    `json:"device"`
}

// CardCropMeta describes one rectified card crop. BBox is x, y, w, h in the
// source scan; Corners are TL, TR, BR, BL.
type CardCropMeta struct {
	CropID       string    `json:"crop_id"`
	File         string    `json:"file"`
	SourceScanID string    `json:"source_scan_id"`
	BBox         [4]int    `json:"bbox"`
	Corners      [4][2]int `json:"corners"`
}

// Arcana values.
const (
	ArcanaMajor = "major"
	ArcanaMinor = "minor"
)

// Orientation values.
const (
	OrientationUpright  = "upright"
	OrientationReversed = "reversed"
	OrientationUnknown  = "unknown"
)

var suits = map[string]bool{"wands": true, "cups": true, "swords": true, "pentacles": true}

// CardClassification is the classifier's verdict on one crop.
type CardClassification struct {
	DeckHint    *string `json:"deck_hint"`
	CardName    string  `json:"card_name"`
	Arcana      string  `json:"arcana"`
	Suit        *string `json:"suit"`
	Rank        *string `json:"rank"`
	MajorNumber *int    `json:"major_number"`
	Orientation string  `json:"orientation"`
	Confidence  float64 `json:"confidence"`
	Notes       string  `json:"notes"`
}

// Validate checks the enumerated fields and the confidence range.
func (c CardClassification) Validate() error {
	if c.CardName == "" {
		return errors.New("card_name is required")
	}
	if c.Arcana != ArcanaMajor && c.Arcana != ArcanaMinor {
		return fmt.Errorf("arcana must be %q or %q, got %q", ArcanaMajor, ArcanaMinor, c.Arcana)
	}
	if c.Suit != nil && !suits[*c.Suit] {
		return fmt.Errorf("invalid suit %q", *c.Suit)
	}
	if c.MajorNumber != nil && (*c.MajorNumber < 0 || *c.MajorNumber > 21) {
		return fmt.Errorf("major_number must be within [0, 21], got %d", *c.MajorNumber)
	}
	switch c.Orientation {
	case OrientationUpright, OrientationReversed, OrientationUnknown:
	default:
		return fmt.Errorf("invalid orientation %q", c.Orientation)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0, 1], got %.3f", c.Confidence)
	}
	return nil
}

// UnmarshalJSON applies the defaults for omitted optional fields.
func (c *CardClassification) UnmarshalJSON(data []byte) error {
	type plain CardClassification
	v := plain{Orientation: OrientationUnknown}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CardClassification(v)
	return nil
}

// ClassRecord links a crop to a classification result.
type ClassRecord struct {
	CropID    string             `json:"crop_id"`
	Model     string             `json:"model"`
	Timestamp Timestamp          `json:"timestamp"`
	Result    CardClassification `json:"result"`
}

func (ScanMeta) Type() RecordType { return TypeScan }

func (CardCropMeta) Type() RecordType { return TypeCrop }

func (ClassRecord) Type() RecordType { return TypeClass }

func (ScanMeta) isRecord() {}

func (CardCropMeta) isRecord() {}

func (ClassRecord) isRecord() {}

// MarshalJSON emits the record with its "type" field first.
func (s ScanMeta) MarshalJSON() ([]byte, error) {
	type plain ScanMeta
	return json.Marshal(struct {
		Type RecordType `json:"type"`
		plain
	}{TypeScan, plain(s)})
}

// MarshalJSON emits the record with its "type" field first.
func (c CardCropMeta) MarshalJSON() ([]byte, error) {
	type plain CardCropMeta
	return json.Marshal(struct {
		Type RecordType `json:"type"`
		plain
	}{TypeCrop, plain(c)})
}

// MarshalJSON emits the record with its "type" field first.
func (c ClassRecord) MarshalJSON() ([]byte, error) {
	type plain ClassRecord
	return json.Marshal(struct {
		Type RecordType `json:"type"`
		plain
	}{TypeClass, plain(c)})
}

// ParseRecord decodes one log line into its concrete record type.
func ParseRecord(line []byte) (Record, error) {
	var head struct {
		Type RecordType `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	switch head.Type {
	case TypeScan:
		var r ScanMeta
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode scan record: %w", err)
		}
		return r, nil
	case TypeCrop:
		var r CardCropMeta
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode crop record: %w", err)
		}
		return r, nil
	case TypeClass:
		var r ClassRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode class record: %w", err)
		}
		if err := r.Result.Validate(); err != nil {
			return nil, fmt.Errorf("class record %s: %w", r.CropID, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, strings.TrimSpace(string(head.Type)))
	}
}

// EncodeRecord renders r as a single JSON line terminated by '\n'.
func EncodeRecord(r Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if c, ok := r.(ClassRecord); ok {
		if err := c.Result.Validate(); err != nil {
			return nil, fmt.Errorf("class record %s: %w", c.CropID, err)
		}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.Type(), err)
	}
	return append(data, '\n'), nil
}
