package docmerge

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

// DocumentPartName is the main document part of a DOCX package
const DocumentPartName = "word/document.xml"

// templatePartRegex matches the parts that may contain template commands
var templatePartRegex = regexp.MustCompile(`^word/(document|header\d*|footer\d*|footnotes|endnotes)\.xml$`)

// DocxReader handles reading DOCX packages
type DocxReader struct {
	reader *zip.Reader
	Parts  map[string]*zip.File
}

// NewDocxReader creates a new DOCX reader
func NewDocxReader(r io.ReaderAt, size int64) (*DocxReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, NewDocumentError("open", "", fmt.Errorf("failed to read zip file: %w", err))
	}

	dr := &DocxReader{
		reader: zipReader,
		Parts:  make(map[string]*zip.File),
	}

	// Index all parts by name
	for _, file := range zipReader.File {
		dr.Parts[file.Name] = file
	}

	// Check if this is a valid DOCX file by looking for required parts
	if _, ok := dr.Parts[DocumentPartName]; !ok {
		return nil, NewDocumentError("open", DocumentPartName, fmt.Errorf("not a valid DOCX file: missing part"))
	}

	return dr, nil
}

// DocxReaderFromFile creates a DocxReader from a file path
func DocxReaderFromFile(path string) (*DocxReader, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("read", path, err)
	}
	return NewDocxReader(bytes.NewReader(content), int64(len(content)))
}

// GetPart retrieves the content of a specific part
func (dr *DocxReader) GetPart(partName string) ([]byte, error) {
	file, ok := dr.Parts[partName]
	if !ok {
		return nil, NewDocumentError("read", partName, fmt.Errorf("part not found"))
	}

	rc, err := file.Open()
	if err != nil {
		return nil, NewDocumentError("read", partName, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, NewDocumentError("read", partName, err)
	}

	return content, nil
}

// ListParts returns the names of all parts in package order
func (dr *DocxReader) ListParts() []string {
	parts := make([]string, 0, len(dr.reader.File))
	for _, file := range dr.reader.File {
		parts = append(parts, file.Name)
	}
	return parts
}

// TemplateParts returns the document, header, footer and note parts,
// sorted by name
func (dr *DocxReader) TemplateParts() []string {
	var parts []string
	for name := range dr.Parts {
		if templatePartRegex.MatchString(name) {
			parts = append(parts, name)
		}
	}
	sort.Strings(parts)
	return parts
}

// IsTemplatePart reports whether a part may hold template commands
func IsTemplatePart(name string) bool {
	return templatePartRegex.MatchString(name)
}

// writePackage copies every part of dr to w, replacing the content of the
// parts listed in replaced
func (dr *DocxReader) writePackage(w io.Writer, replaced map[string][]byte) error {
	zw := zip.NewWriter(w)
	for _, file := range dr.reader.File {
		if content, ok := replaced[file.Name]; ok {
			fw, err := zw.CreateHeader(&zip.FileHeader{
				Name:     file.Name,
				Method:   zip.Deflate,
				Modified: file.Modified,
			})
			if err != nil {
				return NewDocumentError("write", file.Name, err)
			}
			if _, err := fw.Write(content); err != nil {
				return NewDocumentError("write", file.Name, err)
			}
			continue
		}
		if err := zw.Copy(file); err != nil {
			return NewDocumentError("copy", file.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return NewDocumentError("write", "", err)
	}
	return nil
}
