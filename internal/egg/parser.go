package egg

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// entry is one untyped `<Tag> name { body }` element.
type entry struct {
	tag      string
	name     string
	words    []string
	children []*entry
	line     int
}

func (e *entry) child(tag string) *entry {
	for _, c := range e.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// ParseFile reads and parses an egg file.
func ParseFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("egg: read %s: %w", path, err)
	}
	doc, err := parseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return doc, nil
}

// Parse reads an egg document from r.
func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("egg: read: %w", err)
	}
	return parseBytes(raw)
}

func parseBytes(raw []byte) (*Document, error) {
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	p := &parser{lex: newLexer(data)}
	entries, _, err := p.parseBody(true)
	if err != nil {
		return nil, err
	}
	return buildDocument(entries)
}

// decodeText strips a UTF-8 BOM and decodes legacy exporters' Windows-1252 output.
func decodeText(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("egg: decode text: %w", err)
	}
	return out, nil
}

type parser struct {
	lex *lexer
}

// parseBody reads entries and bare words up to the closing brace (or EOF at top level).
func (p *parser) parseBody(top bool) ([]*entry, []string, error) {
	var entries []*entry
	var words []string
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, nil, err
		}
		switch tok.kind {
		case tokEOF:
			if !top {
				return nil, nil, fmt.Errorf("egg: line %d: unexpected end of file, missing '}'", tok.line)
			}
			return entries, words, nil
		case tokClose:
			if top {
				return nil, nil, fmt.Errorf("egg: line %d: unexpected '}'", tok.line)
			}
			return entries, words, nil
		case tokOpen:
			return nil, nil, fmt.Errorf("egg: line %d: unexpected '{'", tok.line)
		case tokWord:
			words = append(words, tok.text)
		case tokTag:
			e, err := p.parseEntry(tok)
			if err != nil {
				return nil, nil, err
			}
			entries = append(entries, e)
		}
	}
}

func (p *parser) parseEntry(tag token) (*entry, error) {
	e := &entry{tag: tag.text, line: tag.line}
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokWord || tok.kind == tokTag {
		e.name = tok.text
		if tok.kind == tokTag {
			// unquoted names such as <skeleton>
			e.name = "<" + tok.text + ">"
		}
		if tok, err = p.lex.next(); err != nil {
			return nil, err
		}
	}
	if tok.kind != tokOpen {
		return nil, fmt.Errorf("egg: line %d: expected '{' after <%s>", tok.line, tag.text)
	}
	e.children, e.words, err = p.parseBody(false)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func buildDocument(entries []*entry) (*Document, error) {
	doc := &Document{}
	for _, e := range entries {
		if e.tag == "CoordinateSystem" {
			if len(e.words) > 0 {
				doc.CoordinateSystem = e.words[0]
			}
			continue
		}
		n, err := buildNode(e)
		if err != nil {
			return nil, err
		}
		if n != nil {
			doc.Nodes = append(doc.Nodes, n)
		}
	}
	return doc, nil
}

// buildNode converts entries that can appear at the root or inside a group. Unknown tags yield nil.
func buildNode(e *entry) (Node, error) {
	switch e.tag {
	case "Group", "Instance":
		return buildGroup(e)
	case "VertexPool":
		return buildPool(e)
	case "Texture":
		t := &TextureReference{Name: e.name}
		if len(e.words) > 0 {
			t.Path = e.words[0]
		}
		return t, nil
	case "Table", "Bundle":
		return buildTable(e)
	case "Polygon":
		return buildPolygon(e)
	case "Joint":
		return buildJoint(e)
	}
	return nil, nil
}

func buildGroup(e *entry) (*EntityGroup, error) {
	g := &EntityGroup{Name: e.name}
	for _, c := range e.children {
		switch c.tag {
		case "Dart":
			g.Dart = len(c.words) > 0 && c.words[0] != "0"
		case "Collide":
			cf := &CollideFlags{}
			if len(c.words) > 0 {
				cf.Type = c.words[0]
				cf.Flags = c.words[1:]
			}
			g.Collide = cf
		case "ObjectType":
			if len(c.words) > 0 && (strings.EqualFold(c.words[0], "barrier") || strings.EqualFold(c.words[0], "floor")) {
				g.Collide = &CollideFlags{Type: "Polyset", Flags: []string{"descend"}}
			}
		case "Transform":
			m, err := buildTransform(c)
			if err != nil {
				return nil, err
			}
			g.Transform = &m
		default:
			n, err := buildNode(c)
			if err != nil {
				return nil, err
			}
			if n != nil {
				g.Members = append(g.Members, n)
			}
		}
	}
	return g, nil
}

func buildPool(e *entry) (*VertexPool, error) {
	pool := &VertexPool{Name: e.name, Vertices: make(map[int]*Vertex)}
	for _, c := range e.children {
		if c.tag != "Vertex" {
			continue
		}
		idx, err := strconv.Atoi(c.name)
		if err != nil {
			return nil, fmt.Errorf("egg: line %d: <Vertex> in pool %q: bad index %q", c.line, e.name, c.name)
		}
		pos, err := floats(c, c.words, 3)
		if err != nil {
			return nil, err
		}
		v := &Vertex{Index: idx, Pos: [3]float64{pos[0], pos[1], pos[2]}}
		for _, attr := range c.children {
			switch attr.tag {
			case "Normal":
				n, err := floats(attr, attr.words, 3)
				if err != nil {
					return nil, err
				}
				v.Normal = &[3]float64{n[0], n[1], n[2]}
			case "UV":
				if v.UV != nil {
					continue // first UV set wins
				}
				uv, err := floats(attr, attr.words, 2)
				if err != nil {
					return nil, err
				}
				v.UV = &[2]float64{uv[0], uv[1]}
			case "RGBA":
				rgba, err := floats(attr, attr.words, 4)
				if err != nil {
					return nil, err
				}
				v.Color = &[4]float64{rgba[0], rgba[1], rgba[2], rgba[3]}
			}
		}
		pool.Vertices[idx] = v
	}
	return pool, nil
}

func buildPolygon(e *entry) (*Polygon, error) {
	poly := &Polygon{}
	for _, c := range e.children {
		switch c.tag {
		case "TRef":
			if poly.TRef == "" && len(c.words) > 0 {
				poly.TRef = c.words[0]
			}
		case "VertexRef":
			idx, err := ints(c)
			if err != nil {
				return nil, err
			}
			poly.Indices = append(poly.Indices, idx...)
			if ref := c.child("Ref"); ref != nil && len(ref.words) > 0 {
				poly.Pool = ref.words[0]
			}
		}
	}
	return poly, nil
}

func buildJoint(e *entry) (*Joint, error) {
	j := &Joint{Name: e.name}
	for _, c := range e.children {
		switch c.tag {
		case "Transform":
			m, err := buildTransform(c)
			if err != nil {
				return nil, err
			}
			j.Transform = &m
		case "DefaultPose":
			m, err := buildTransform(c)
			if err != nil {
				return nil, err
			}
			j.DefaultPose = &m
		case "VertexRef":
			idx, err := ints(c)
			if err != nil {
				return nil, err
			}
			weight := 1.0
			pool := ""
			for _, sub := range c.children {
				switch {
				case sub.tag == "Ref" && len(sub.words) > 0:
					pool = sub.words[0]
				case sub.tag == "Scalar" && sub.name == "membership" && len(sub.words) > 0:
					w, err := strconv.ParseFloat(sub.words[0], 64)
					if err != nil {
						return nil, fmt.Errorf("egg: line %d: bad membership %q", sub.line, sub.words[0])
					}
					weight = w
				}
			}
			for _, i := range idx {
				j.Members = append(j.Members, Membership{Pool: pool, Index: i, Weight: weight})
			}
		case "Joint":
			child, err := buildJoint(c)
			if err != nil {
				return nil, err
			}
			j.Children = append(j.Children, child)
		}
	}
	return j, nil
}

func buildTable(e *entry) (*AnimationTable, error) {
	t := &AnimationTable{Name: e.name, Bundle: e.tag == "Bundle"}
	for _, c := range e.children {
		switch c.tag {
		case "Table", "Bundle":
			sub, err := buildTable(c)
			if err != nil {
				return nil, err
			}
			t.Tables = append(t.Tables, sub)
		case "Xfm$Anim_S":
			for _, s := range c.children {
				if s.tag != "S$Anim" || len(s.name) != 1 {
					continue
				}
				words := s.words
				if v := s.child("V"); v != nil {
					words = v.words
				}
				values, err := floats(s, words, 0)
				if err != nil {
					return nil, err
				}
				t.Channels = append(t.Channels, &ScalarChannel{Axis: s.name[0], Values: values})
			}
		}
	}
	return t, nil
}

// buildTransform composes the components of a <Transform> or <DefaultPose> in listed order.
func buildTransform(e *entry) (Matrix, error) {
	m := IdentityMatrix()
	for _, c := range e.children {
		var comp Matrix
		switch c.tag {
		case "Matrix4":
			v, err := floats(c, c.words, 16)
			if err != nil {
				return m, err
			}
			copy(comp[:], v)
		case "Translate":
			v, err := floats(c, c.words, 3)
			if err != nil {
				return m, err
			}
			comp = IdentityMatrix()
			comp[12], comp[13], comp[14] = v[0], v[1], v[2]
		case "Scale":
			v, err := floats(c, c.words, 1)
			if err != nil {
				return m, err
			}
			sx, sy, sz := v[0], v[0], v[0]
			if len(v) >= 3 {
				sy, sz = v[1], v[2]
			}
			comp = IdentityMatrix()
			comp[0], comp[5], comp[10] = sx, sy, sz
		case "RotX", "RotY", "RotZ":
			v, err := floats(c, c.words, 1)
			if err != nil {
				return m, err
			}
			axis := map[string][3]float64{"RotX": {1, 0, 0}, "RotY": {0, 1, 0}, "RotZ": {0, 0, 1}}[c.tag]
			comp = axisAngle(v[0], axis)
		case "Rotate":
			v, err := floats(c, c.words, 4)
			if err != nil {
				return m, err
			}
			comp = axisAngle(v[0], [3]float64{v[1], v[2], v[3]})
		default:
			continue
		}
		m = m.Mul(comp)
	}
	return m, nil
}

// axisAngle returns the row-vector rotation of deg degrees about axis.
func axisAngle(deg float64, axis [3]float64) Matrix {
	l := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if l == 0 {
		return IdentityMatrix()
	}
	x, y, z := axis[0]/l, axis[1]/l, axis[2]/l
	s, c := math.Sincos(deg * math.Pi / 180)
	t := 1 - c
	// Transpose of the column-vector Rodrigues matrix.
	return Matrix{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// floats parses words as numbers, requiring at least need of them.
func floats(e *entry, words []string, need int) ([]float64, error) {
	if len(words) < need {
		return nil, fmt.Errorf("egg: line %d: <%s> needs %d values, got %d", e.line, e.tag, need, len(words))
	}
	out := make([]float64, len(words))
	for i, w := range words {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("egg: line %d: <%s>: bad number %q", e.line, e.tag, w)
		}
		out[i] = f
	}
	return out, nil
}

func ints(e *entry) ([]int, error) {
	out := make([]int, len(e.words))
	for i, w := range e.words {
		n, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("egg: line %d: <%s>: bad index %q", e.line, e.tag, w)
		}
		out[i] = n
	}
	return out, nil
}
