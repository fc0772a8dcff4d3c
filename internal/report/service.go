package report

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/knowledge"
)

var (
	// ErrFontUnavailable is returned when no configured font can render the
	// whole report.
	ErrFontUnavailable = errors.New("no usable font for PDF report")
	// ErrMissingGlyphs marks a font that loaded but cannot draw some of the
	// report text.
	ErrMissingGlyphs   = errors.New("font lacks glyphs")
)

// DefaultFontPaths are tried in order until one covers every character of
// the report. Fonts need TrueType outlines; a collection contributes its
// first face. CJK fonts come first because the bundled knowledge base is
// Chinese. DejaVu only serves reports without CJK text.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/wenquanyi/wqy-microhei/wqy-microhei.ttc",
	"/usr/share/fonts/wqy-microhei/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/wenquanyi/wqy-zenhei/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/google-droid-sans-fonts/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/arphic-gbsn00lp/gbsn00lp.ttf",
	"/usr/share/fonts/truetype/arphic-gkai00mp/gkai00mp.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontName   = "report"
	textWidth  = 500
	pageBottom = 790
)

// Report is the content of one diagnosis report.
type Report struct {
	Username    string
	GeneratedAt time.Time
	Symptoms    []string
	Diagnoses   []knowledge.DisorderRecord
}

type Service struct {
	fontPaths []string
	logger    *zap.Logger
}

func NewService(fontPaths []string, logger *zap.Logger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &Service{fontPaths: fontPaths, logger: logger}
}

// fontError reports a font that cannot render the report, so Render moves
// on to the next candidate.
type fontError struct {
	path string
	err  error
}

func (e *fontError) Error() string { return fmt.Sprintf("font %s: %v", e.path, e.err) }

func (e *fontError) Unwrap() error { return e.err }

// Render builds an A4 PDF for rep with the first font that covers all of
// its text.
func (s *Service) Render(rep Report) ([]byte, error) {
	var rejected []error
	for _, path := range s.fontPaths {
		out, err := s.renderWith(path, rep)
		if err == nil {
			return out, nil
		}
		var fontErr *fontError
		if !errors.As(err, &fontErr) {
			return nil, err
		}
		s.logger.Debug("report font rejected", zap.String("path", path), zap.Error(fontErr.err))
		rejected = append(rejected, err)
	}

	s.logger.Warn("no report font could render the report",
		zap.Strings("paths", s.fontPaths), zap.Errors("rejected", rejected))
	if len(rejected) == 0 {
		return nil, ErrFontUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrFontUnavailable, errors.Join(rejected...))
}

func (s *Service) renderWith(path string, rep Report) ([]byte, error) {
	data, err := readFont(path)
	if err != nil {
		return nil, &fontError{path: path, err: err}
	}

	missing := make(map[rune]struct{})
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	err = pdf.AddTTFFontDataWithOption(fontName, data, gopdf.TtfOption{
		OnGlyphNotFound: func(r rune) {
			// line breaks reach the font through SplitText but are never drawn
			if !unicode.IsControl(r) {
				missing[r] = struct{}{}
			}
		},
	})
	if err != nil {
		return nil, &fontError{path: path, err: err}
	}

	err = layout(pdf, rep)
	if len(missing) > 0 {
		return nil, &fontError{path: path, err: fmt.Errorf("%w: %q", ErrMissingGlyphs, sortedRunes(missing))}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	s.logger.Debug("rendered diagnosis report",
		zap.String("font", path),
		zap.Int("diagnoses", len(rep.Diagnoses)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func layout(pdf *gopdf.GoPdf, rep Report) error {
	w := &writer{pdf: pdf}
	w.line(20, "睡眠障碍诊断报告 / Sleep Disorder Diagnosis Report")
	w.br(30)

	generated := rep.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	w.line(12, fmt.Sprintf("日期 / Date: %s", generated.Format("2006-01-02 15:04")))
	w.br(15)
	if rep.Username != "" {
		w.line(12, fmt.Sprintf("用户 / User: %s", rep.Username))
		w.br(15)
	}
	w.paragraph(12, fmt.Sprintf("症状 / Symptoms: %s", strings.Join(rep.Symptoms, ", ")))
	w.br(20)

	w.line(14, "可能的疾病 / Possible disorders:")
	w.br(18)
	if len(rep.Diagnoses) == 0 {
		w.line(11, "- 未匹配到已知疾病 / No known disorder matched.")
		w.br(15)
	}
	for _, d := range rep.Diagnoses {
		w.line(13, d.Name)
		w.br(16)
		w.paragraph(11, "疾病描述: "+d.Description)
		w.paragraph(11, "诊断标准: "+d.DiagnosticCriteria)
		w.paragraph(11, "治疗建议: "+d.TreatmentAdvice)
		w.br(10)
	}
	return w.err
}

func sortedRunes(set map[rune]struct{}) string {
	out := make([]rune, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return string(out)
}

// writer keeps the first layout error so the caller checks once.
type writer struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *writer) setFont(size float64) {
	if w.err == nil {
		w.err = w.pdf.SetFont(fontName, "", size)
	}
}

func (w *writer) line(size float64, text string) {
	w.setFont(size)
	w.pageBreak(size)
	if w.err == nil {
		w.err = w.pdf.Cell(nil, text)
	}
}

func (w *writer) paragraph(size float64, text string) {
	w.setFont(size)
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.pageBreak(size)
		if w.err == nil {
			w.err = w.pdf.Cell(nil, l)
		}
		w.br(size + 2)
	}
}

func (w *writer) br(h float64) {
	if w.err == nil {
		w.pdf.Br(h)
	}
}

func (w *writer) pageBreak(size float64) {
	if w.err == nil && w.pdf.GetY()+size > pageBottom {
		w.pdf.AddPage()
	}
}
