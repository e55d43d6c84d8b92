package cbz

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/foliokit/folio/model"
)

// comicInfoName is the sidecar entry carrying archive metadata.
const comicInfoName = "ComicInfo.xml"

// ComicInfo mirrors the community ComicInfo.xml schema. Fields with no
// first-class Metadata slot round-trip through custom fields.
type ComicInfo struct {
	XMLName     xml.Name `xml:"ComicInfo"`
	Title       string   `xml:"Title,omitempty"`
	Series      string   `xml:"Series,omitempty"`
	Number      string   `xml:"Number,omitempty"`
	Volume      string   `xml:"Volume,omitempty"`
	Summary     string   `xml:"Summary,omitempty"`
	Publisher   string   `xml:"Publisher,omitempty"`
	Writer      string   `xml:"Writer,omitempty"`
	Penciller   string   `xml:"Penciller,omitempty"`
	Inker       string   `xml:"Inker,omitempty"`
	Colorist    string   `xml:"Colorist,omitempty"`
	Letterer    string   `xml:"Letterer,omitempty"`
	CoverArtist string   `xml:"CoverArtist,omitempty"`
	Editor      string   `xml:"Editor,omitempty"`
	Year        int      `xml:"Year,omitempty"`
	Month       int      `xml:"Month,omitempty"`
	Day         int      `xml:"Day,omitempty"`
	LanguageISO string   `xml:"LanguageISO,omitempty"`
	PageCount   int      `xml:"PageCount,omitempty"`
	Genre       string   `xml:"Genre,omitempty"`
	Tags        string   `xml:"Tags,omitempty"`
	Web         string   `xml:"Web,omitempty"`
}

func parseComicInfo(data []byte) (*ComicInfo, error) {
	var ci ComicInfo
	if err := xml.Unmarshal(data, &ci); err != nil {
		return nil, err
	}
	return &ci, nil
}

func (ci *ComicInfo) marshal() ([]byte, error) {
	out, err := xml.MarshalIndent(ci, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (ci *ComicInfo) metadata() model.Metadata {
	var meta model.Metadata
	meta.Title = ci.Title
	meta.Author = ci.Writer
	meta.Publisher = ci.Publisher
	meta.Description = ci.Summary
	meta.Language = ci.LanguageISO
	meta.PubDate = ci.pubDate()
	meta.Format = "CBZ"

	set := func(key, val string) {
		if val != "" {
			meta.SetCustom(key, val)
		}
	}
	set("cbz.series", ci.Series)
	set("cbz.number", ci.Number)
	set("cbz.volume", ci.Volume)
	set("cbz.genre", ci.Genre)
	set("cbz.tags", ci.Tags)
	set("cbz.web", ci.Web)
	set("cbz.penciller", ci.Penciller)
	set("cbz.inker", ci.Inker)
	set("cbz.colorist", ci.Colorist)
	set("cbz.letterer", ci.Letterer)
	set("cbz.coverArtist", ci.CoverArtist)
	set("cbz.editor", ci.Editor)
	return meta
}

// pubDate renders the available Year/Month/Day parts, most significant
// first, stopping at the first absent part.
func (ci *ComicInfo) pubDate() string {
	if ci.Year == 0 {
		return ""
	}
	s := strconv.Itoa(ci.Year)
	if ci.Month == 0 {
		return s
	}
	s += fmt.Sprintf("-%02d", ci.Month)
	if ci.Day == 0 {
		return s
	}
	return s + fmt.Sprintf("-%02d", ci.Day)
}

func comicInfoFromMetadata(meta model.Metadata) *ComicInfo {
	ci := &ComicInfo{
		Title:       meta.Title,
		Writer:      meta.Author,
		Publisher:   meta.Publisher,
		Summary:     meta.Description,
		LanguageISO: meta.Language,
	}
	ci.Year, ci.Month, ci.Day = splitDate(meta.PubDate)

	get := func(key string) string {
		v, _ := meta.GetCustom(key)
		return v
	}
	ci.Series = get("cbz.series")
	ci.Number = get("cbz.number")
	ci.Volume = get("cbz.volume")
	ci.Genre = get("cbz.genre")
	ci.Tags = get("cbz.tags")
	ci.Web = get("cbz.web")
	ci.Penciller = get("cbz.penciller")
	ci.Inker = get("cbz.inker")
	ci.Colorist = get("cbz.colorist")
	ci.Letterer = get("cbz.letterer")
	ci.CoverArtist = get("cbz.coverArtist")
	ci.Editor = get("cbz.editor")
	return ci
}

func splitDate(date string) (year, month, day int) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) > 0 {
		year, _ = strconv.Atoi(parts[0])
	}
	if year == 0 {
		return 0, 0, 0
	}
	if len(parts) > 1 {
		month, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		day, _ = strconv.Atoi(parts[2])
	}
	return year, month, day
}
