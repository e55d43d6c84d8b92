package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
)

const (
	mimetypeName    = "mimetype"
	mimetypeValue   = "application/epub+zip"
	containerName   = "META-INF/container.xml"
	opfMediaType    = "application/oebps-package+xml"
	defaultOPFPath  = "OEBPS/content.opf"
	ncxMediaType    = "application/x-dtbncx+xml"
	xhtmlMediaType  = "application/xhtml+xml"
)

// containerXML represents the structure of META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name  `xml:"container"`
	Version   string    `xml:"version,attr"`
	Xmlns     string    `xml:"xmlns,attr,omitempty"`
	Rootfiles rootfiles `xml:"rootfiles"`
}

type rootfiles struct {
	Rootfile []rootfile `xml:"rootfile"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer parses META-INF/container.xml and returns the path to
// the package document.
func parseContainer(zr *zip.Reader) (string, error) {
	containerFile := findEntry(zr, containerName)
	if containerFile == nil {
		return "", fmt.Errorf("missing %s", containerName)
	}

	data, err := readEntry(containerFile)
	if err != nil {
		return "", err
	}

	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", fmt.Errorf("invalid container.xml: %w", err)
	}

	for _, rf := range container.Rootfiles.Rootfile {
		if rf.MediaType == opfMediaType || rf.MediaType == "" {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}
	if len(container.Rootfiles.Rootfile) > 0 {
		return container.Rootfiles.Rootfile[0].FullPath, nil
	}
	return "", fmt.Errorf("no rootfile in container.xml")
}

func containerFor(opfPath string) ([]byte, error) {
	c := containerXML{
		Version: "1.0",
		Xmlns:   "urn:oasis:names:tc:opendocument:xmlns:container",
		Rootfiles: rootfiles{
			Rootfile: []rootfile{{FullPath: opfPath, MediaType: opfMediaType}},
		},
	}
	out, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
