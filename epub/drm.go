package epub

import (
	"archive/zip"
	"encoding/xml"
	"strings"
)

// encryptionXML represents the structure of META-INF/encryption.xml.
type encryptionXML struct {
	XMLName       xml.Name        `xml:"encryption"`
	EncryptedData []encryptedData `xml:"EncryptedData"`
}

type encryptedData struct {
	EncryptionMethod encryptionMethod `xml:"EncryptionMethod"`
	CipherData       cipherData       `xml:"CipherData"`
}

type encryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type cipherData struct {
	CipherReference cipherReference `xml:"CipherReference"`
}

type cipherReference struct {
	URI string `xml:"URI,attr"`
}

// hasDRM reports whether the archive carries DRM protection.
// META-INF/rights.xml (Adobe ADEPT) always counts; encryption.xml counts
// only when content files are encrypted, since font obfuscation is
// permitted by the format and is not DRM.
func hasDRM(zr *zip.Reader) bool {
	for _, f := range zr.File {
		switch f.Name {
		case "META-INF/rights.xml":
			return true
		case "META-INF/encryption.xml":
			encrypted, err := hasEncryptedContent(f)
			if err != nil {
				// Unparseable encryption manifest: assume protected.
				return true
			}
			if encrypted {
				return true
			}
		}
	}
	return false
}

// hasEncryptedContent parses encryption.xml and checks whether any content
// file (XHTML, HTML, CSS) is encrypted.
func hasEncryptedContent(f *zip.File) (bool, error) {
	data, err := readEntry(f)
	if err != nil {
		return false, err
	}

	var enc encryptionXML
	if err := xml.Unmarshal(data, &enc); err != nil {
		return false, err
	}

	for _, ed := range enc.EncryptedData {
		if isFontObfuscation(ed.EncryptionMethod.Algorithm) {
			continue
		}
		if isContentFile(ed.CipherData.CipherReference.URI) {
			return true, nil
		}
	}
	return false, nil
}

func isFontObfuscation(algorithm string) bool {
	if strings.Contains(algorithm, "adobe.com") && strings.Contains(algorithm, "obfuscation") {
		return true
	}
	if strings.Contains(algorithm, "idpf.org") && strings.Contains(algorithm, "obfuscation") {
		return true
	}
	return false
}

func isContentFile(uri string) bool {
	uri = strings.ToLower(uri)
	switch {
	case strings.HasSuffix(uri, ".xhtml"),
		strings.HasSuffix(uri, ".html"),
		strings.HasSuffix(uri, ".htm"),
		strings.HasSuffix(uri, ".xml"),
		strings.HasSuffix(uri, ".css"):
		return true
	}
	return false
}
