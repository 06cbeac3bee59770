package httpclient

import (
	"io"
	"strconv"
)

// Value is a single form field value. The set of implementations is closed:
// String, Bool, Int, StringList, File, Stream and Bytes.
//
// Use a type switch to inspect a Value:
//
//	switch v := value.(type) {
//	case httpclient.String:
//	    ...
//	case httpclient.File:
//	    ...
//	}
type Value interface {
	isValue()
}

// String is a plain text field.
type String string

// Bool is a boolean field, sent as "true" or "false".
type Bool bool

// Int is an integer field, sent in base 10.
type Int int64

// StringList is a repeated text field. Each element is written as its own
// part under the same field name.
type StringList []string

// File is a file read from disk when the payload is built.
// The part is sent as application/octet-stream with the base name of Path.
type File struct {
	Path string
}

// Stream is file content read from Reader when the payload is built.
// FileName is the name reported in the part's Content-Disposition.
type Stream struct {
	FileName string
	Reader   io.Reader
}

// Bytes is in-memory file content.
type Bytes struct {
	FileName string
	Data     []byte
}

func (String) isValue()     {}
func (Bool) isValue()       {}
func (Int) isValue()        {}
func (StringList) isValue() {}
func (File) isValue()       {}
func (Stream) isValue()     {}
func (Bytes) isValue()      {}

// textValue is implemented by the scalar values.
type textValue interface {
	text() string
}

// text returns the wire form of a scalar value.
func (v String) text() string { return string(v) }
func (v Bool) text() string   { return strconv.FormatBool(bool(v)) }
func (v Int) text() string    { return strconv.FormatInt(int64(v), 10) }

// Field is a named form field.
type Field struct {
	Name  string
	Value Value
}

// Params is an ordered set of form fields. Setting a name that already
// exists replaces its value in place, so the original order is kept.
//
// The zero value is ready to use.
type Params struct {
	fields []Field
}

// Set stores value under name. A nil value removes the field.
func (p *Params) Set(name string, value Value) *Params {
	if value == nil {
		p.Delete(name)
		return p
	}
	for i := range p.fields {
		if p.fields[i].Name == name {
			p.fields[i].Value = value
			return p
		}
	}
	p.fields = append(p.fields, Field{Name: name, Value: value})
	return p
}

// SetString stores a text field, skipping empty strings.
func (p *Params) SetString(name, value string) *Params {
	if value == "" {
		return p
	}
	return p.Set(name, String(value))
}

// Get returns the value stored under name.
func (p *Params) Get(name string) (Value, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Delete removes the field stored under name.
func (p *Params) Delete(name string) {
	for i := range p.fields {
		if p.fields[i].Name == name {
			p.fields = append(p.fields[:i], p.fields[i+1:]...)
			return
		}
	}
}

// Len returns the number of fields.
func (p *Params) Len() int {
	return len(p.fields)
}

// Fields returns a copy of the fields in insertion order.
func (p *Params) Fields() []Field {
	return append([]Field(nil), p.fields...)
}
