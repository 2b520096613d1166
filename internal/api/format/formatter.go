// Package format renders records as JSON or generic XML documents.
//
// A Record is an ordered list of fields so both encodings emit keys in the
// order the caller built them. Floats always carry a decimal point
// (150 is written as 150.0) in either encoding.
package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

const (
	JSON = "json"
	XML  = "xml"
	HTML = "html"

	ContentTypeJSON = "application/json; charset=UTF-8"
	ContentTypeXML  = "application/xml; charset=UTF-8"
)

// ErrUnsupportedFormat is returned for any target other than json or xml.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered mapping. Values may be strings, integers, floats,
// booleans, time.Time, nested Records or []Record.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Message builds the single-field record used for status and error bodies.
func Message(key, msg string) Record {
	return Record{{Key: key, Value: msg}}
}

// Formatter encodes records. Root names the XML document element and Item
// the element wrapping each entry of a list.
type Formatter struct {
	Root string
	Item string
}

// Default is the formatter for shoe payloads.
var Default = Formatter{Root: "response", Item: "shoe"}

// Format encodes data, which must be a Record or a []Record.
func (f Formatter) Format(data any, target string) ([]byte, string, error) {
	switch target {
	case JSON:
		var buf bytes.Buffer
		if err := writeJSON(&buf, data); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ContentTypeJSON, nil
	case XML:
		out, err := f.encodeXML(data)
		if err != nil {
			return nil, "", err
		}
		return out, ContentTypeXML, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

// Format encodes data with the Default formatter.
func Format(data any, target string) ([]byte, string, error) {
	return Default.Format(data, target)
}

func writeJSON(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case Record:
		buf.WriteByte('{')
		for i, fld := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := gojson.MarshalNoEscape(fld.Key)
			if err != nil {
				return fmt.Errorf("encode key %q: %w", fld.Key, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, fld.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []Record:
		buf.WriteByte('[')
		for i, rec := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, rec); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case float64:
		buf.WriteString(formatFloat(val, 64))
	case float32:
		buf.WriteString(formatFloat(float64(val), 32))
	default:
		out, err := gojson.MarshalNoEscape(val)
		if err != nil {
			return fmt.Errorf("encode value: %w", err)
		}
		buf.Write(out)
	}
	return nil
}

func (f Formatter) encodeXML(data any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: f.Root}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	switch val := data.(type) {
	case Record:
		if err := encodeFields(enc, val, f.Item); err != nil {
			return nil, err
		}
	case []Record:
		if err := encodeList(enc, val, f.Item); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("format xml: unsupported payload %T", data)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeList(enc *xml.Encoder, list []Record, item string) error {
	for _, rec := range list {
		start := xml.StartElement{Name: xml.Name{Local: item}}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if err := encodeFields(enc, rec, item); err != nil {
			return err
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	return nil
}

func encodeFields(enc *xml.Encoder, rec Record, item string) error {
	for _, fld := range rec {
		start := xml.StartElement{Name: xml.Name{Local: fld.Key}}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		switch val := fld.Value.(type) {
		case Record:
			if err := encodeFields(enc, val, item); err != nil {
				return err
			}
		case []Record:
			if err := encodeList(enc, val, item); err != nil {
				return err
			}
		default:
			if err := enc.EncodeToken(xml.CharData(text(val))); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	return nil
}

// text is the XML string form of a scalar.
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return formatFloat(val, 64)
	case float32:
		return formatFloat(float64(val), 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(v float64, bitSize int) string {
	s := strconv.FormatFloat(v, 'f', -1, bitSize)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Number renders v the way both encodings do.
func Number(v float64) string {
	return formatFloat(v, 64)
}
