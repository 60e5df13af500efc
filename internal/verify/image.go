package verify

import (
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
)

// matchThreshold is the normalized-cross-correlation score at or above
// which an image verification passes (spec §4.5 "If any source produces
// a score ≥ threshold").
const matchThreshold = 0.85

// pixelMatchDiff is the max grayscale absolute difference counted as a
// matching pixel in the overlay artifact (spec §4.5).
const pixelMatchDiff = 10

// ImageVerifier implements device.VerificationController for the "image"
// family (waitForImageToAppear / waitForImageToDisappear and similar
// commands). Grounded on original_source/src_LEGACY/controllers/
// verification/image.py's reference-cache + NCC-match pipeline.
type ImageVerifier struct {
	Resolver       ReferenceResolver
	CaptureSources func(ctx context.Context) ([]string, error) // candidate current-frame paths
	ArtifactDir    string                                      // captures/verification_results
	CacheDir       string                                      // per-model reference cache root

	mu          sync.Mutex
	refCache    map[string]string // blake3(model, name, filter) -> local path
}

var _ device.VerificationController = (*ImageVerifier)(nil)

func (v *ImageVerifier) Verifications() []string {
	return []string{"waitForImageToAppear", "waitForImageToDisappear"}
}

func (v *ImageVerifier) Execute(ctx context.Context, cfg device.VerificationConfig) (device.VerificationResult, error) {
	imagePath, _ := cfg.Params["image_path"].(string)
	deviceModel, _ := cfg.Params["device_model"].(string)
	filter := model.ImageFilter(stringParam(cfg.Params, "image_filter", string(model.ImageFilterNone)))
	area := areaParam(cfg.Params)

	threshold := floatParam(cfg.Params, "threshold", matchThreshold)

	refPath, err := v.resolveReference(ctx, deviceModel, imagePath, filter)
	if err != nil {
		return device.VerificationResult{Success: false, Message: fmt.Sprintf("reference resolve failed: %v", err)}, nil
	}
	refImg, err := loadImage(refPath)
	if err != nil {
		return device.VerificationResult{Success: false, Message: fmt.Sprintf("reference load failed: %v", err)}, nil
	}
	refImg = applyFilter(refImg, filter)

	var sources []string
	if v.CaptureSources != nil {
		sources, err = v.CaptureSources(ctx)
		if err != nil {
			return device.VerificationResult{Success: false, Message: err.Error()}, nil
		}
	}
	if cfg.SourceImagePath != "" {
		sources = append([]string{cfg.SourceImagePath}, sources...)
	}

	bestScore := -1.0
	var bestSourcePath string
	var bestSourceImg image.Image
	for _, src := range sources {
		img, err := loadImage(src)
		if err != nil {
			continue
		}
		cropped := cropToArea(img, area)
		cropped = applyFilter(cropped, filter)
		score := normalizedCrossCorrelation(refImg, cropped)
		if score > bestScore {
			bestScore = score
			bestSourcePath = src
			bestSourceImg = cropped
		}
	}

	passed := bestScore >= threshold
	if strings.EqualFold(cfg.Command, "waitForImageToDisappear") {
		passed = !passed
	}
	confidence := bestScore
	if strings.EqualFold(cfg.Command, "waitForImageToDisappear") {
		confidence = clamp01(1 - bestScore)
	}

	result := device.VerificationResult{
		Success:    passed,
		Message:    fmt.Sprintf("best match score %.3f (threshold %.2f)", bestScore, threshold),
		Confidence: confidence,
		Details:    map[string]any{"score": bestScore, "source_path": bestSourcePath},
	}
	if bestSourceImg != nil && v.ArtifactDir != "" {
		srcURL, refURL, overlayURL := v.writeArtifacts(bestSourceImg, refImg)
		result.SourceURL, result.ReferenceURL, result.OverlayURL = srcURL, refURL, overlayURL
	}
	return result, nil
}

// resolveReference caches a resolved reference image path by (deviceModel,
// name, filter) so repeated verifications in a run skip re-resolving
// (spec §4.5 "cache by name").
func (v *ImageVerifier) resolveReference(ctx context.Context, deviceModel, name string, filter model.ImageFilter) (string, error) {
	key := cacheKey(deviceModel, name, string(filter))

	v.mu.Lock()
	if v.refCache == nil {
		v.refCache = map[string]string{}
	}
	if path, ok := v.refCache[key]; ok {
		v.mu.Unlock()
		return path, nil
	}
	v.mu.Unlock()

	local := filepath.Join(v.CacheDir, deviceModel, name)
	if _, err := os.Stat(local); err != nil {
		if v.Resolver == nil {
			return "", fmt.Errorf("reference %s not cached locally and no resolver configured", name)
		}
		resolved, err := v.Resolver.ResolveReference(ctx, deviceModel, name)
		if err != nil {
			return "", err
		}
		local = resolved
	}

	v.mu.Lock()
	v.refCache[key] = local
	v.mu.Unlock()
	return local, nil
}

func cacheKey(parts ...string) string {
	h := blake3.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func cropToArea(img image.Image, area model.Area) image.Image {
	if area.Empty() {
		return img
	}
	rect := image.Rect(area.X, area.Y, area.X+area.W, area.Y+area.H)
	out := image.NewRGBA(image.Rect(0, 0, area.W, area.H))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

func applyFilter(img image.Image, filter model.ImageFilter) image.Image {
	switch filter {
	case model.ImageFilterGreyscale:
		return toGray(img)
	case model.ImageFilterBinary:
		gray := toGray(img)
		return binarize(gray, 127)
	default:
		return img
	}
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

func binarize(gray *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for y := gray.Bounds().Min.Y; y < gray.Bounds().Max.Y; y++ {
		for x := gray.Bounds().Min.X; x < gray.Bounds().Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			if v >= threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// normalizedCrossCorrelation scores similarity between two images over
// their common overlapping region in [-1,1] grayscale intensity space
// (spec §4.5 "compute normalized cross-correlation"). Images of
// differing size are compared over their shared top-left region; no
// overlap returns 0.
func normalizedCrossCorrelation(a, b image.Image) float64 {
	ga, gb := toGray(a), toGray(b)
	w := min(ga.Bounds().Dx(), gb.Bounds().Dx())
	h := min(ga.Bounds().Dy(), gb.Bounds().Dy())
	if w <= 0 || h <= 0 {
		return 0
	}

	n := float64(w * h)
	var sumA, sumB float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sumA += float64(ga.GrayAt(ga.Bounds().Min.X+x, ga.Bounds().Min.Y+y).Y)
			sumB += float64(gb.GrayAt(gb.Bounds().Min.X+x, gb.Bounds().Min.Y+y).Y)
		}
	}
	meanA, meanB := sumA/n, sumB/n

	var num, denA, denB float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			da := float64(ga.GrayAt(ga.Bounds().Min.X+x, ga.Bounds().Min.Y+y).Y) - meanA
			db := float64(gb.GrayAt(gb.Bounds().Min.X+x, gb.Bounds().Min.Y+y).Y) - meanB
			num += da * db
			denA += da * da
			denB += db * db
		}
	}
	if denA == 0 || denB == 0 {
		if denA == 0 && denB == 0 {
			return 1
		}
		return 0
	}
	return num / math.Sqrt(denA*denB)
}

// writeArtifacts produces the three on-disk artifacts spec §4.5 requires:
// source, reference, and a red/green 50%-alpha overlay.
func (v *ImageVerifier) writeArtifacts(source, reference image.Image) (srcURL, refURL, overlayURL string) {
	if err := os.MkdirAll(v.ArtifactDir, 0o755); err != nil {
		return "", "", ""
	}
	srcPath := filepath.Join(v.ArtifactDir, "source.png")
	refPath := filepath.Join(v.ArtifactDir, "reference.png")
	overlayPath := filepath.Join(v.ArtifactDir, "overlay.png")

	_ = savePNG(srcPath, source)
	_ = savePNG(refPath, reference)
	_ = savePNG(overlayPath, buildOverlay(source, reference))

	return srcPath, refPath, overlayPath
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// buildOverlay colors matching pixels (grayscale diff <= pixelMatchDiff)
// green and mismatching pixels red, each at 50% alpha over the source.
func buildOverlay(source, reference image.Image) image.Image {
	gs, gr := toGray(source), toGray(reference)
	w := min(gs.Bounds().Dx(), gr.Bounds().Dx())
	h := min(gs.Bounds().Dy(), gr.Bounds().Dy())
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), source, source.Bounds().Min, draw.Src)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			diff := int(gs.GrayAt(gs.Bounds().Min.X+x, gs.Bounds().Min.Y+y).Y) - int(gr.GrayAt(gr.Bounds().Min.X+x, gr.Bounds().Min.Y+y).Y)
			if diff < 0 {
				diff = -diff
			}
			overlay := color.RGBA{R: 255, A: 128}
			if diff <= pixelMatchDiff {
				overlay = color.RGBA{G: 255, A: 128}
			}
			out.Set(x, y, blendOver(out.At(x, y), overlay))
		}
	}
	return out
}

func blendOver(base color.Color, overlay color.RGBA) color.Color {
	br, bg, bb, _ := base.RGBA()
	a := float64(overlay.A) / 255.0
	r := uint8(float64(br>>8)*(1-a) + float64(overlay.R)*a)
	g := uint8(float64(bg>>8)*(1-a) + float64(overlay.G)*a)
	b := uint8(float64(bb>>8)*(1-a) + float64(overlay.B)*a)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func stringParam(params map[string]any, key, def string) string {
	if params == nil {
		return def
	}
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return def
}

// floatParam returns params[key] coerced to a float64, or def if
// absent/unparseable (mirrors model.Verification.FloatParam for the raw
// device.VerificationConfig.Params map this controller receives).
func floatParam(params map[string]any, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch n := params[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

func areaParam(params map[string]any) model.Area {
	raw, ok := params["area"]
	if !ok {
		return model.Area{}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return model.Area{}
	}
	toInt := func(k string) int {
		switch n := m[k].(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
		return 0
	}
	return model.Area{X: toInt("x"), Y: toInt("y"), W: toInt("w"), H: toInt("h")}
}
