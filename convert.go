package folio

import (
	"strings"

	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/format"
	"github.com/foliokit/folio/model"
)

// ConvertOption adjusts a conversion.
type ConvertOption func(*convertOptions)

type convertOptions struct {
	target format.Format
}

// WithTargetFormat forces the destination format instead of deriving
// it from the destination extension.
func WithTargetFormat(f format.Format) ConvertOption {
	return func(o *convertOptions) { o.target = f }
}

// Convert reads srcPath and writes its book to dstPath in the target
// format. Everything the source exposes and the target supports is
// transferred: metadata, chapters (or flat content), navigation, and
// images when the target embeds them. Capabilities the target lacks
// are omitted silently rather than failing the conversion.
func Convert(srcPath, dstPath string, opts ...ConvertOption) error {
	const op = "folio.convert"

	var o convertOptions
	for _, apply := range opts {
		apply(&o)
	}

	src, err := Open(srcPath)
	if err != nil {
		return err
	}

	target := o.target
	if target == format.Unknown {
		target = format.Detect(dstPath)
	}
	if target == format.Unknown {
		return errs.Newf(errs.KindUnsupportedFormat, op, "cannot determine target format for %q", dstPath).
			WithPath(dstPath).
			WithHint("name the destination with a supported extension or pass an explicit target format")
	}

	dst, err := NewWriter(target)
	if err != nil {
		return err
	}

	meta, err := src.Metadata()
	if err != nil {
		return err
	}
	meta.Format = target.String()
	if err := dst.SetMetadata(meta); err != nil {
		return err
	}

	content, err := src.Content()
	if err != nil {
		// A DRM protected source can still fail here; conversion
		// cannot proceed without content.
		return err
	}

	toc, _ := src.TOC()
	if chapters := splitChapters(content, toc); len(chapters) > 0 {
		for _, ch := range chapters {
			if err := dst.AddChapter(ch.Title, ch.Content); err != nil {
				return err
			}
		}
	} else if err := dst.SetContent(content); err != nil {
		return err
	}

	if iw, ok := dst.(ImageWriter); ok {
		images, _ := src.Images()
		for _, img := range images {
			// Duplicate names inside damaged sources are skipped, not
			// fatal.
			_ = iw.AddImage(img.Name, img.Data)
		}
	}

	return dst.WriteToFile(dstPath)
}

// splitChapters cuts content into chapters along TOC boundaries when
// every top-level entry can be located in order; otherwise it falls
// back to chapter-heading lines, and gives up (nil) when neither
// yields more than one chapter.
func splitChapters(content string, toc []model.TocEntry) []model.Chapter {
	if chapters := splitByTOC(content, toc); len(chapters) > 1 {
		return chapters
	}
	if chapters := splitByHeadingLines(content); len(chapters) > 1 {
		return chapters
	}
	return nil
}

// splitByHeadingLines cuts flat content at chapter-like lines, the
// structure sources without native navigation (TXT, markup-free MOBI)
// tend to carry.
func splitByHeadingLines(content string) []model.Chapter {
	isHeading := func(line string) bool {
		if len(line) == 0 || len(line) > 80 {
			return false
		}
		lower := strings.ToLower(line)
		return strings.HasPrefix(lower, "chapter ") || strings.HasPrefix(lower, "part ")
	}

	var chapters []model.Chapter
	var body []string
	flush := func() {
		if len(chapters) == 0 {
			return
		}
		chapters[len(chapters)-1].Content = strings.TrimSpace(strings.Join(body, "\n"))
		body = nil
	}
	for _, line := range strings.Split(content, "\n") {
		if isHeading(strings.TrimSpace(line)) {
			flush()
			chapters = append(chapters, model.Chapter{
				Title:    strings.TrimSpace(line),
				Position: len(chapters),
			})
			continue
		}
		if len(chapters) == 0 && strings.TrimSpace(line) != "" {
			// Leading text before any heading defeats the split.
			return nil
		}
		body = append(body, line)
	}
	flush()
	return chapters
}

func splitByTOC(content string, toc []model.TocEntry) []model.Chapter {
	type mark struct {
		title string
		pos   int
	}
	var marks []mark
	search := 0
	for _, entry := range toc {
		if entry.Level > 0 || entry.Title == "" {
			continue
		}
		i := strings.Index(content[search:], entry.Title)
		if i < 0 {
			return nil
		}
		marks = append(marks, mark{title: entry.Title, pos: search + i})
		search += i + len(entry.Title)
	}
	if len(marks) == 0 {
		return nil
	}

	var chapters []model.Chapter
	for i, m := range marks {
		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1].pos
		}
		chapters = append(chapters, model.Chapter{
			Title:    m.title,
			Content:  strings.TrimSpace(content[m.pos+len(m.title) : end]),
			Position: i,
		})
	}
	return chapters
}
