package report

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// fallbackFamily is the core font used when no Japanese font is available.
const fallbackFamily = "Helvetica"

// jpFamily is the family name registered for a loaded TrueType font.
const jpFamily = "JPFont"

// DefaultFontCandidates lists font files tried after the configured path.
var DefaultFontCandidates = []string{
	filepath.Join("assets", "fonts", "NotoSansJP-Regular.ttf"),
	"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
	"/usr/share/fonts/opentype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/takao-gothic/TakaoGothic.ttf",
	"/usr/share/fonts/truetype/vlgothic/VL-Gothic-Regular.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\msgothic.ttf`,
}

// font is a resolved font: TrueType bytes, or nil for the core fallback.
type font struct {
	path string
	data []byte
}

func (f font) family() string {
	if f.data == nil {
		return fallbackFamily
	}
	return jpFamily
}

// resolveFont returns the first readable TrueType file among candidates that
// fpdf can register. Collections and CFF-flavoured OpenType files are
// skipped since they cannot be embedded.
func resolveFont(candidates []string) font {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !isTrueType(data) {
			zap.L().Debug("report: skipping non-truetype font", zap.String("path", path))
			continue
		}
		if err := registerFont(data); err != nil {
			zap.L().Debug("report: font rejected", zap.String("path", path), zap.Error(err))
			continue
		}
		zap.L().Debug("report: using font", zap.String("path", path))
		return font{path: path, data: data}
	}
	zap.L().Warn("report: no japanese font found, falling back to core font",
		zap.Strings("candidates", candidates))
	return font{}
}

func isTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	sig := data[:4]
	return bytes.Equal(sig, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.Equal(sig, []byte("true"))
}

// registerFont loads data into a scratch document and selects it. fpdf drops
// fonts it cannot parse without recording an error, so SetFont is what
// surfaces the failure.
func registerFont(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("report: parse font: %v", r)
		}
	}()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(jpFamily, "", data)
	pdf.SetFont(jpFamily, "", 10)
	return eris.Wrap(pdf.Error(), "report: register font")
}
