package docmerge

import (
	"encoding/xml"
	"io"
	"strings"
	"time"
)

const (
	corePropertiesPart = "docProps/core.xml"
	appPropertiesPart  = "docProps/app.xml"
)

// Metadata holds the document properties of a DOCX package: the core
// properties (title, author, dates) and the statistics Word stores in the
// extended properties. Properties missing from the package are zero.
type Metadata struct {
	Title          string    `yaml:"title,omitempty"`
	Subject        string    `yaml:"subject,omitempty"`
	Creator        string    `yaml:"creator,omitempty"`
	Keywords       string    `yaml:"keywords,omitempty"`
	Description    string    `yaml:"description,omitempty"`
	Category       string    `yaml:"category,omitempty"`
	LastModifiedBy string    `yaml:"last_modified_by,omitempty"`
	Revision       string    `yaml:"revision,omitempty"`
	Created        time.Time `yaml:"created,omitempty"`
	Modified       time.Time `yaml:"modified,omitempty"`
	LastPrinted    time.Time `yaml:"last_printed,omitempty"`

	Application string `yaml:"application,omitempty"`
	Company     string `yaml:"company,omitempty"`
	Template    string `yaml:"template,omitempty"`
	Pages       int    `yaml:"pages"`
	Words       int    `yaml:"words"`
	Characters  int    `yaml:"characters"`
	Lines       int    `yaml:"lines"`
	Paragraphs  int    `yaml:"paragraphs"`
}

// coreProperties mirrors docProps/core.xml. Elements are matched by local
// name, so the dc:, dcterms: and cp: prefixes need not be declared here.
type coreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	Category       string `xml:"category"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	LastPrinted    string `xml:"lastPrinted"`
}

// appProperties mirrors docProps/app.xml
type appProperties struct {
	Application string `xml:"Application"`
	Company     string `xml:"Company"`
	Template    string `xml:"Template"`
	Pages       int    `xml:"Pages"`
	Words       int    `xml:"Words"`
	Characters  int    `xml:"Characters"`
	Lines       int    `xml:"Lines"`
	Paragraphs  int    `xml:"Paragraphs"`
}

// Metadata reads the core and extended properties of the package. Both
// parts are optional; a part that exists but cannot be decoded is a
// DocumentError.
func (dr *DocxReader) Metadata() (*Metadata, error) {
	md := &Metadata{}

	var core coreProperties
	if err := dr.decodePart(corePropertiesPart, &core); err != nil {
		return nil, err
	}
	md.Title = core.Title
	md.Subject = core.Subject
	md.Creator = core.Creator
	md.Keywords = core.Keywords
	md.Description = core.Description
	md.Category = core.Category
	md.LastModifiedBy = core.LastModifiedBy
	md.Revision = core.Revision
	md.Created = parseW3CDate(core.Created)
	md.Modified = parseW3CDate(core.Modified)
	md.LastPrinted = parseW3CDate(core.LastPrinted)

	var app appProperties
	if err := dr.decodePart(appPropertiesPart, &app); err != nil {
		return nil, err
	}
	md.Application = app.Application
	md.Company = app.Company
	md.Template = app.Template
	md.Pages = app.Pages
	md.Words = app.Words
	md.Characters = app.Characters
	md.Lines = app.Lines
	md.Paragraphs = app.Paragraphs

	return md, nil
}

// GetMetadata reads the document properties of a DOCX package
func GetMetadata(r io.ReaderAt, size int64) (*Metadata, error) {
	dr, err := NewDocxReader(r, size)
	if err != nil {
		return nil, err
	}
	return dr.Metadata()
}

// decodePart unmarshals an XML part into v. A missing part leaves v
// untouched.
func (dr *DocxReader) decodePart(name string, v interface{}) error {
	if _, ok := dr.Parts[name]; !ok {
		return nil
	}
	content, err := dr.GetPart(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(content, v); err != nil {
		return NewDocumentError("metadata", name, err)
	}
	return nil
}

// parseW3CDate parses the W3CDTF timestamps of core properties. Values that
// do not parse are treated as missing.
func parseW3CDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
