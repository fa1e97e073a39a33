package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(scans []ScanOutcome, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(scans)
	case "csv":
		return formatCSV(scans)
	default: // text
		return formatText(scans), nil
	}
}

type jsonScan struct {
	File    string                  `json:"file"`
	ScanID  string                  `json:"scan_id,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Summary *pipeline.ResultSummary `json:"result,omitempty"`
}

// formatJSON formats results as JSON.
func formatJSON(scans []ScanOutcome) (string, error) {
	out := struct {
		Scans []jsonScan `json:"scans"`
	}{Scans: make([]jsonScan, len(scans))}

	for i, s := range scans {
		js := jsonScan{File: s.Path, ScanID: s.ScanID}
		if s.Err != nil {
			js.Error = s.Err.Error()
		}
		if s.Result != nil {
			sum := s.Result.Summary()
			js.Summary = &sum
		}
		out.Scans[i] = js
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV emits one row per crop; failed scans and scans without cards
// get a single row with an empty crop id.
func formatCSV(scans []ScanOutcome) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{"file", "scan_id", "index", "crop_id", "crop_file", "x", "y", "w", "h", "error"}); err != nil {
		return "", err
	}

	for _, s := range scans {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		if s.Result == nil || len(s.Result.Cards) == 0 {
			if err := writer.Write([]string{s.Path, s.ScanID, "0", "", "", "", "", "", "", errText}); err != nil {
				return "", err
			}
			continue
		}
		for j, c := range s.Result.Cards {
			row := []string{
				s.Path,
				s.ScanID,
				strconv.Itoa(j + 1),
				c.Meta.CropID,
				c.Meta.File,
				strconv.Itoa(c.Meta.BBox[0]),
				strconv.Itoa(c.Meta.BBox[1]),
				strconv.Itoa(c.Meta.BBox[2]),
				strconv.Itoa(c.Meta.BBox[3]),
				errText,
			}
			if err := writer.Write(row); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text, one block per scan.
func formatText(scans []ScanOutcome) string {
	var output strings.Builder
	for i, s := range scans {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s", s.Path)
		if s.ScanID != "" {
			fmt.Fprintf(&output, " (%s)", s.ScanID)
		}
		output.WriteString("\n")
		if s.Err != nil {
			fmt.Fprintf(&output, "error: %v\n", s.Err)
		}
		if s.Result == nil {
			continue
		}
		text, _ := pipeline.ToPlainText(s.Result)
		if text != "" {
			output.WriteString(text)
			output.WriteString("\n")
		}
	}
	return output.String()
}
