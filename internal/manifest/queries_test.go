package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededLog(t *testing.T) *Log {
	t.Helper()
	log := testLog(t)
	require.NoError(t, log.Append(
		ScanMeta{ScanID: "scan_0001", File: "scans/scan_0001.png", Timestamp: NewTimestamp(time.Now()), DPI: 600, Device: "epson"},
		sampleCrop("card_0001", "scan_0001"),
		sampleCrop("card_0002", "scan_0001"),
		ScanMeta{ScanID: "scan_0002", File: "scans/scan_0002.png", Timestamp: NewTimestamp(time.Now()), DPI: 600, Device: "epson"},
		sampleCrop("card_0003", "scan_0002"),
		sampleClass("card_0002"),
	))
	return log
}

func TestQueries(t *testing.T) {
	log := seededLog(t)

	scans, err := log.Scans()
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "scan_0002", scans[1].ScanID)

	crops, err := log.Crops()
	require.NoError(t, err)
	assert.Len(t, crops, 3)

	classes, err := log.Classifications()
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Three of Wands", classes[0].Result.CardName)

	forScan, err := log.CropsForScan("scan_0002")
	require.NoError(t, err)
	require.Len(t, forScan, 1)
	assert.Equal(t, "card_0003", forScan[0].CropID)
}

func TestPendingCrops(t *testing.T) {
	log := seededLog(t)

	pending, err := log.PendingCrops()
	require.NoError(t, err)

	ids := make([]string, len(pending))
	for i, c := range pending {
		ids[i] = c.CropID
	}
	assert.Equal(t, []string{"card_0001", "card_0003"}, ids)

	require.NoError(t, log.Append(sampleClass("card_0001"), sampleClass("card_0003")))
	pending, err = log.PendingCrops()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueries_EmptyLog(t *testing.T) {
	log := testLog(t)

	pending, err := log.PendingCrops()
	require.NoError(t, err)
	assert.Empty(t, pending)

	scans, err := log.Scans()
	require.NoError(t, err)
	assert.Empty(t, scans)
}
