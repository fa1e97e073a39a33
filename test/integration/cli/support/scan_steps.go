package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/cucumber/godog"
)

// Card geometry of the synthetic scans: 100x170 px cards (ratio 1.7) with
// 40 px gaps and a 60 px margin.
const (
	cardW      = 100
	cardH      = 170
	cardGap    = 40
	scanMargin = 60
)

// aScanWithAGridOfCards renders a flatbed scan with rows x cols cards.
func (testCtx *TestContext) aScanWithAGridOfCards(name string, rows, cols int) error {
	return testutil.WriteScanPNG(testCtx.Path(name), testutil.GridScan(rows, cols, cardW, cardH, cardGap, scanMargin))
}

// aScanWithOneCard renders a flatbed scan with a single card.
func (testCtx *TestContext) aScanWithOneCard(name string) error {
	return testCtx.aScanWithAGridOfCards(name, 1, 1)
}

// aRotatedCardScan renders one card rotated by angle degrees.
func (testCtx *TestContext) aRotatedCardScan(name string, angle float64) error {
	return testutil.WriteScanPNG(testCtx.Path(name), testutil.ScanSpec{
		Width: 400, Height: 400,
		Cards: []testutil.CardSpec{{X: 150, Y: 115, W: cardW, H: cardH, Angle: angle}},
	})
}

// aBlankScan renders a scan with no cards on it.
func (testCtx *TestContext) aBlankScan(name string) error {
	return testutil.WriteScanPNG(testCtx.Path(name), testutil.ScanSpec{Width: 300, Height: 300})
}

// aPhotoOfASingleCard renders an image mostly filled by one card.
func (testCtx *TestContext) aPhotoOfASingleCard(name string) error {
	return testutil.WriteScanPNG(testCtx.Path(name), testutil.ScanSpec{
		Width: 180, Height: 280,
		Cards: []testutil.CardSpec{{X: 30, Y: 40, W: 120, H: 200, Caption: "XVII"}},
	})
}

// aCorruptImage writes a file with an image extension and garbage content.
func (testCtx *TestContext) aCorruptImage(name string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("this is not an image"), 0o600)
}

// theImageShouldBePixelsHigh checks the height of a written crop.
func (testCtx *TestContext) theImageShouldBePixelsHigh(name string, height int) error {
	img, _, err := utils.LoadImage(testCtx.Path(testCtx.substituteCommandVariables(name)))
	if err != nil {
		return err
	}
	if got := img.Bounds().Dy(); got != height {
		return fmt.Errorf("image %s is %d px high, expected %d", name, got, height)
	}
	return nil
}

// RegisterScanSteps registers the synthetic scan fixtures.
func (testCtx *TestContext) RegisterScanSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a scan "([^"]*)" with a (\d+)x(\d+) grid of cards$`, testCtx.aScanWithAGridOfCards)
	sc.Step(`^a scan "([^"]*)" with one card$`, testCtx.aScanWithOneCard)
	sc.Step(`^a scan "([^"]*)" with one card rotated by (-?\d+(?:\.\d+)?) degrees$`, testCtx.aRotatedCardScan)
	sc.Step(`^a blank scan "([^"]*)"$`, testCtx.aBlankScan)
	sc.Step(`^a photo "([^"]*)" of a single card$`, testCtx.aPhotoOfASingleCard)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^the image "([^"]*)" should be (\d+) pixels high$`, testCtx.theImageShouldBePixelsHigh)
}
