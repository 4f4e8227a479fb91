// Package stringtable implements reading and writing of .stringtable XML
// files (the Pillars of Eternity localization format).
//
// Input files look like:
//
//	<StringTableFile>
//	  <Entries>
//	    <Entry ID="1"><DefaultText>Hello!</DefaultText></Entry>
//	  </Entries>
//	</StringTableFile>
//
// Parsing is lenient: Entry elements are collected at any depth, the ID may
// be an "ID" or "id" attribute, and the text comes from the DefaultText
// child when present or the entry's own character data otherwise. Written
// files always use the full StringTableFile shape with DefaultText plus a
// FemaleText copy, matching what the game engine expects.
package stringtable

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the file extension handled by this package.
const Extension = ".stringtable"

// MaxFileSize is the largest input accepted. Anything bigger is almost
// certainly not a stringtable and would bloat provider requests.
const MaxFileSize = 50 * 1024 * 1024

// Entry is one identified text record.
type Entry struct {
	ID   string
	Text string
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a stringtable file from disk.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	entries, _, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// parse walks the token stream collecting Entry elements at any depth.
// Returns the entries and the document's root element name.
func parse(data []byte) ([]Entry, string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var entries []Entry
	var root string

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, root, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if root == "" {
			root = start.Name.Local
			continue
		}
		if start.Name.Local != "Entry" {
			continue
		}

		var raw struct {
			ID          string  `xml:"ID,attr"`
			IDLower     string  `xml:"id,attr"`
			DefaultText *string `xml:"DefaultText"`
			Chardata    string  `xml:",chardata"`
		}
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return nil, root, err
		}

		e := Entry{ID: raw.ID}
		if e.ID == "" {
			e.ID = raw.IDLower
		}
		if raw.DefaultText != nil {
			e.Text = *raw.DefaultText
		} else {
			e.Text = strings.TrimSpace(raw.Chardata)
		}
		entries = append(entries, e)
	}

	if root == "" {
		return nil, root, fmt.Errorf("no root element")
	}
	return entries, root, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

type entryXML struct {
	ID          string `xml:"ID,attr"`
	DefaultText string `xml:"DefaultText"`
	FemaleText  string `xml:"FemaleText"`
}

type fileXML struct {
	XMLName     xml.Name   `xml:"StringTableFile"`
	XsiNS       string     `xml:"xmlns:xsi,attr"`
	XsdNS       string     `xml:"xmlns:xsd,attr"`
	Name        string     `xml:"Name"`
	NextEntryID int        `xml:"NextEntryID"`
	EntryCount  int        `xml:"EntryCount"`
	Entries     []entryXML `xml:"Entries>Entry"`
}

// WriteFile writes entries as a StringTableFile document, creating parent
// directories as needed. FemaleText duplicates DefaultText, which is how
// the engine handles tables with no gendered variants.
func WriteFile(path string, entries []Entry) error {
	doc := fileXML{
		XsiNS:       "http://www.w3.org/2001/XMLSchema-instance",
		XsdNS:       "http://www.w3.org/2001/XMLSchema",
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		NextEntryID: len(entries) + 1,
		EntryCount:  len(entries),
		Entries:     make([]entryXML, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, entryXML{
			ID:          e.ID,
			DefaultText: e.Text,
			FemaleText:  e.Text,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate reports whether the file at path is a structurally sound,
// non-empty stringtable. A nil return means a resuming run may skip the
// file; any error means it must be (re)generated.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: file is empty", path)
	}
	if info.Size() > MaxFileSize {
		return fmt.Errorf("%s: file exceeds %d bytes", path, int64(MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	entries, root, err := parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if root != "StringTableFile" && root != "StringTable" {
		return fmt.Errorf("%s: unexpected root element %q", path, root)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: no entries", path)
	}
	return nil
}
