package entity

import (
	"bytes"
	"fmt"
)

// SupportedVersions lists the document format revisions this package understands.
var SupportedVersions = []int{1}

// IsSupported reports whether a declared format revision can be decoded.
func IsSupported(version int) bool {
	for _, v := range SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}

// Format decodes one wire encoding of a BREP document into entities.
type Format interface {
	// Name is the short tag used on the command line (e.g. "json").
	Name() string
	// Sniff reports whether data looks like this format.
	Sniff(data []byte) bool
	// Decode parses data into a fully checked Document.
	Decode(data []byte) (*Document, error)
}

// Decoder picks a Format for a byte buffer and runs it.
type Decoder struct {
	formats []Format
}

// NewDecoder returns a decoder that tries formats in the given order.
func NewDecoder(formats ...Format) *Decoder {
	return &Decoder{formats: formats}
}

// Formats returns the registered formats in sniffing order.
func (d *Decoder) Formats() []Format {
	return d.formats
}

// Lookup returns the format with the given name, or nil.
func (d *Decoder) Lookup(name string) Format {
	for _, f := range d.formats {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Decode sniffs the format of data and decodes it. A failure never yields
// a partial document.
func (d *Decoder) Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Malformed("empty document")
	}
	for _, f := range d.formats {
		if f.Sniff(data) {
			return d.DecodeAs(f, data)
		}
	}
	return nil, Malformed("unrecognised document encoding")
}

// DecodeAs decodes data with an explicitly chosen format.
func (d *Decoder) DecodeAs(f Format, data []byte) (*Document, error) {
	doc, err := f.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	if !IsSupported(doc.Version) {
		return nil, fmt.Errorf("%s: %w", f.Name(), Unsupported(doc.Version))
	}
	return doc, nil
}
