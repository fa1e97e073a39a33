package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) manifest(deck string) *manifest.Log {
	return pipeline.Deck{Dir: testCtx.DeckDir(deck)}.Manifest()
}

// theDeckShouldHaveCrops counts the crop records of a deck.
func (testCtx *TestContext) theDeckShouldHaveCrops(deck string, n int) error {
	crops, err := testCtx.manifest(deck).Crops()
	if err != nil {
		return err
	}
	if len(crops) != n {
		return fmt.Errorf("deck %s has %d crops, expected %d", deck, len(crops), n)
	}
	for _, c := range crops {
		if _, err := os.Stat(filepath.Join(testCtx.DeckDir(deck), filepath.FromSlash(c.File))); err != nil {
			return fmt.Errorf("crop %s has no image: %w", c.CropID, err)
		}
	}
	return nil
}

// theDeckShouldHaveScanRecords counts the scan records of a deck.
func (testCtx *TestContext) theDeckShouldHaveScanRecords(deck string, n int) error {
	scans, err := testCtx.manifest(deck).Scans()
	if err != nil {
		return err
	}
	if len(scans) != n {
		return fmt.Errorf("deck %s has %d scan records, expected %d", deck, len(scans), n)
	}
	return nil
}

// theCropsOfDeckShouldBe compares the crop ids of a deck in manifest order.
func (testCtx *TestContext) theCropsOfDeckShouldBe(deck, ids string) error {
	crops, err := testCtx.manifest(deck).Crops()
	if err != nil {
		return err
	}
	got := make([]string, len(crops))
	for i, c := range crops {
		got[i] = c.CropID
	}
	want := strings.Split(ids, ", ")
	if strings.Join(got, ", ") != strings.Join(want, ", ") {
		return fmt.Errorf("deck %s crops are [%s], expected [%s]", deck, strings.Join(got, ", "), ids)
	}
	return nil
}

// theScanRecordShouldHaveDevice checks the device of a registered scan.
func (testCtx *TestContext) theScanRecordShouldHaveDevice(scanID, deck, device string) error {
	scans, err := testCtx.manifest(deck).Scans()
	if err != nil {
		return err
	}
	for _, s := range scans {
		if s.ScanID == scanID {
			if s.Device != device {
				return fmt.Errorf("scan %s device is %q, expected %q", scanID, s.Device, device)
			}
			return nil
		}
	}
	return fmt.Errorf("scan %s not registered in deck %s", scanID, deck)
}

// cropHasBeenClassified appends a class record as the classifier would.
func (testCtx *TestContext) cropHasBeenClassified(cropID, deck, cardName string) error {
	return testCtx.manifest(deck).Append(manifest.ClassRecord{
		CropID:    cropID,
		Model:     "integration-test",
		Timestamp: manifest.NewTimestamp(time.Now()),
		Result: manifest.CardClassification{
			CardName:    cardName,
			Arcana:      manifest.ArcanaMajor,
			Orientation: manifest.OrientationUpright,
			Confidence:  1,
		},
	})
}

// RegisterDeckSteps registers manifest and deck layout assertions.
func (testCtx *TestContext) RegisterDeckSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the deck "([^"]*)" should have (\d+) crops?$`, testCtx.theDeckShouldHaveCrops)
	sc.Step(`^the deck "([^"]*)" should have (\d+) scan records?$`, testCtx.theDeckShouldHaveScanRecords)
	sc.Step(`^the crops of deck "([^"]*)" should be "([^"]*)"$`, testCtx.theCropsOfDeckShouldBe)
	sc.Step(`^scan "([^"]*)" of deck "([^"]*)" should have device "([^"]*)"$`, testCtx.theScanRecordShouldHaveDevice)
	sc.Step(`^crop "([^"]*)" of deck "([^"]*)" has been classified as "([^"]*)"$`, testCtx.cropHasBeenClassified)
}
