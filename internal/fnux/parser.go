// Package fnux parses FNUX XML exports and extracts the medical record
// sections relevant for summarization.
package fnux

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Element is one decoded XML element. Only what extraction needs is
// kept: the local tag name, child order, and the element's own
// character data.
type Element struct {
	Name     string
	Children []*Element
	Text     string
}

// ParseError reports malformed or unreadable XML input.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse fnux xml: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile parses the FNUX document at path.
func ParseFile(path string) (*Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse decodes well-formed XML from r into an element tree. Namespace
// prefixes and attributes are dropped so extraction can match on local
// tag names: FNUX exports are inconsistent about declaring namespaces.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	doc := &Element{}
	stack := []*Element{doc}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.Text += string(t)
		}
	}

	if len(doc.Children) == 0 {
		return nil, &ParseError{Err: errors.New("document has no root element")}
	}

	return doc.Children[0], nil
}

// findAll returns every descendant of el with the given local name, in
// document (pre-)order. Duplicates at different nesting depths are all
// included so repeated sections concatenate instead of overwriting.
func findAll(el *Element, local string) []*Element {
	var out []*Element
	for _, c := range el.Children {
		if c.Name == local {
			out = append(out, c)
		}
		out = append(out, findAll(c, local)...)
	}

	return out
}

// children returns the direct children of el with the given local name.
func children(el *Element, local string) []*Element {
	var out []*Element
	for _, c := range el.Children {
		if c.Name == local {
			out = append(out, c)
		}
	}

	return out
}

// firstDescendant returns the first descendant of el with the given
// local name, or nil.
func firstDescendant(el *Element, local string) *Element {
	for _, c := range el.Children {
		if c.Name == local {
			return c
		}
		if found := firstDescendant(c, local); found != nil {
			return found
		}
	}

	return nil
}

// textOf returns the element's own character data with surrounding
// whitespace trimmed.
func textOf(el *Element) string {
	return strings.TrimSpace(el.Text)
}
