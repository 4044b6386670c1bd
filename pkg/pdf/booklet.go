package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/signintech/gopdf"
)

// PhotoItem is one photograph placed on a photo page.
type PhotoItem struct {
	Path    string
	Caption string
}

// Event is one row of the chronological table.
type Event struct {
	Year  int
	Month int
	Title string
	Text  string
}

// Booklet carries everything the renderer lays out: cover data, the
// finalized narrative, photo pages, and the chronological event table.
type Booklet struct {
	Title     string
	UserName  string
	BirthYear int
	Content   string
	Summary   string
	Photos    []PhotoItem
	Events    []Event
}

// Renderer writes paginated PDF booklets into an output directory. The TTF
// font must cover the target script (Japanese text needs a CJK font).
type Renderer struct {
	outDir   string
	fontPath string
}

const (
	pageWidth  = 595.28 // A4 portrait, points
	pageHeight = 841.89
	margin     = 56.0
	bodySize   = 12.0
	lineHeight = 20.0
)

// NewRenderer validates the font file and ensures the output directory.
func NewRenderer(outDir, fontPath string) (*Renderer, error) {
	if strings.TrimSpace(outDir) == "" {
		return nil, fmt.Errorf("pdf output dir is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("pdf font path is required")
	}
	if _, err := os.Stat(fontPath); err != nil {
		return nil, fmt.Errorf("pdf font: %w", err)
	}
	return &Renderer{outDir: outDir, fontPath: fontPath}, nil
}

// Dir returns the directory rendered booklets are written to.
func (r *Renderer) Dir() string {
	return r.outDir
}

// Render lays out the booklet and writes it under a generated filename.
// It returns the filename and the page count.
func (r *Renderer) Render(b Booklet) (string, int, error) {
	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := doc.AddTTFFont("body", r.fontPath); err != nil {
		return "", 0, fmt.Errorf("load font: %w", err)
	}

	if err := r.coverPage(doc, b); err != nil {
		return "", 0, err
	}
	if err := r.narrativePages(doc, b); err != nil {
		return "", 0, err
	}
	if err := r.photoPages(doc, b.Photos); err != nil {
		return "", 0, err
	}
	if err := r.eventTable(doc, b.Events); err != nil {
		return "", 0, err
	}

	filename := uuid.NewString() + ".pdf"
	if err := doc.WritePdf(filepath.Join(r.outDir, filename)); err != nil {
		return "", 0, fmt.Errorf("write pdf: %w", err)
	}
	return filename, doc.GetNumberOfPages(), nil
}

func (r *Renderer) coverPage(doc *gopdf.GoPdf, b Booklet) error {
	doc.AddPage()
	if err := doc.SetFont("body", "", 28); err != nil {
		return err
	}
	title := b.Title
	if strings.TrimSpace(title) == "" {
		title = b.UserName
	}
	doc.SetXY(margin, pageHeight/3)
	if err := doc.Cell(nil, title); err != nil {
		return fmt.Errorf("cover title: %w", err)
	}
	if err := doc.SetFont("body", "", 14); err != nil {
		return err
	}
	doc.SetXY(margin, pageHeight/3+48)
	subtitle := b.UserName
	if b.BirthYear > 0 {
		subtitle = fmt.Sprintf("%s (%d - )", b.UserName, b.BirthYear)
	}
	if err := doc.Cell(nil, subtitle); err != nil {
		return fmt.Errorf("cover subtitle: %w", err)
	}
	return nil
}

func (r *Renderer) narrativePages(doc *gopdf.GoPdf, b Booklet) error {
	text := strings.TrimSpace(b.Content)
	if text == "" {
		return nil
	}
	doc.AddPage()
	if err := doc.SetFont("body", "", bodySize); err != nil {
		return err
	}
	y := margin
	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			y += lineHeight / 2
			continue
		}
		lines, err := doc.SplitText(paragraph, pageWidth-2*margin)
		if err != nil {
			return fmt.Errorf("split narrative: %w", err)
		}
		for _, line := range lines {
			if y > pageHeight-margin {
				doc.AddPage()
				y = margin
			}
			doc.SetXY(margin, y)
			if err := doc.Cell(nil, line); err != nil {
				return fmt.Errorf("narrative line: %w", err)
			}
			y += lineHeight
		}
	}
	if strings.TrimSpace(b.Summary) != "" {
		y += lineHeight
		lines, err := doc.SplitText(b.Summary, pageWidth-2*margin)
		if err != nil {
			return fmt.Errorf("split summary: %w", err)
		}
		for _, line := range lines {
			if y > pageHeight-margin {
				doc.AddPage()
				y = margin
			}
			doc.SetXY(margin, y)
			if err := doc.Cell(nil, line); err != nil {
				return fmt.Errorf("summary line: %w", err)
			}
			y += lineHeight
		}
	}
	return nil
}

// photoPages places up to two photos per page with captions. Unreadable
// image files are skipped so one bad upload cannot block the booklet.
func (r *Renderer) photoPages(doc *gopdf.GoPdf, photos []PhotoItem) error {
	const (
		photoW = pageWidth - 2*margin
		photoH = (pageHeight - 3*margin) / 2 * 0.82
		slotH  = (pageHeight - 2*margin) / 2
	)
	slot := 0
	for _, photo := range photos {
		if _, err := os.Stat(photo.Path); err != nil {
			continue
		}
		if slot%2 == 0 {
			doc.AddPage()
		}
		y := margin + float64(slot%2)*slotH
		if err := doc.Image(photo.Path, margin, y, &gopdf.Rect{W: photoW, H: photoH}); err != nil {
			// Corrupt image data; leave the slot empty.
			slot++
			continue
		}
		if strings.TrimSpace(photo.Caption) != "" {
			if err := doc.SetFont("body", "", 10); err != nil {
				return err
			}
			doc.SetXY(margin, y+photoH+8)
			if err := doc.Cell(nil, photo.Caption); err != nil {
				return fmt.Errorf("photo caption: %w", err)
			}
		}
		slot++
	}
	return nil
}

func (r *Renderer) eventTable(doc *gopdf.GoPdf, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	const (
		dateW = 110.0
		textW = pageWidth - 2*margin - dateW
		rowH  = 24.0
	)
	doc.AddPage()
	if err := doc.SetFont("body", "", bodySize); err != nil {
		return err
	}
	y := margin
	cellOpt := gopdf.CellOption{Border: gopdf.AllBorders}
	for _, ev := range events {
		if y > pageHeight-margin-rowH {
			doc.AddPage()
			y = margin
		}
		date := fmt.Sprintf("%d", ev.Year)
		if ev.Month > 0 {
			date = fmt.Sprintf("%d-%02d", ev.Year, ev.Month)
		}
		doc.SetXY(margin, y)
		if err := doc.CellWithOption(&gopdf.Rect{W: dateW, H: rowH}, date, cellOpt); err != nil {
			return fmt.Errorf("event date cell: %w", err)
		}
		label := ev.Title
		if strings.TrimSpace(ev.Text) != "" {
			label = ev.Title + " - " + ev.Text
		}
		label = truncateToWidth(doc, label, textW-8)
		doc.SetXY(margin+dateW, y)
		if err := doc.CellWithOption(&gopdf.Rect{W: textW, H: rowH}, label, cellOpt); err != nil {
			return fmt.Errorf("event text cell: %w", err)
		}
		y += rowH
	}
	return nil
}

// truncateToWidth keeps the row height fixed by cutting text that would
// overflow its cell.
func truncateToWidth(doc *gopdf.GoPdf, text string, width float64) string {
	lines, err := doc.SplitText(text, width)
	if err != nil || len(lines) <= 1 {
		return text
	}
	return lines[0] + "..."
}
