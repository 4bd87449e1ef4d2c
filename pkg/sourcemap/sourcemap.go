// Package sourcemap reads and writes version 3 source maps.
package sourcemap

import (
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
)

// Raw is the standard version 3 source map object.
type Raw struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
	SourcesContent []string `json:"sourcesContent"`
}

func (r *Raw) JSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Errorf("marshalling source map: %w", err)
	}
	return b, nil
}

func Parse(b []byte) (*Raw, error) {
	var raw Raw
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Errorf("unmarshalling source map: %w", err)
	}
	if raw.Version != 3 {
		return nil, errors.Errorf("unsupported source map version %d", raw.Version)
	}
	return &raw, nil
}

// Segment is one decoded mapping. Name is -1 when the segment has no name.
type Segment struct {
	Generated position.Place
	Source    int
	Original  position.Place
	Name      int
}

// Builder accumulates segments in generated order and encodes them.
type Builder struct {
	file     string
	sources  []string
	contents []string
	names    []string
	nameIdx  map[string]int
	segments []Segment
}

func NewBuilder(file, source, content string) *Builder {
	return &Builder{
		file:     file,
		sources:  []string{source},
		contents: []string{content},
		nameIdx:  map[string]int{},
	}
}

// Add records that generated maps to original. Segments must arrive in
// generated order; a segment at the same generated place as the previous one
// replaces it.
func (b *Builder) Add(generated, original position.Place, name string) {
	seg := Segment{Generated: generated, Original: original, Name: -1}
	if name != "" {
		idx, ok := b.nameIdx[name]
		if !ok {
			idx = len(b.names)
			b.names = append(b.names, name)
			b.nameIdx[name] = idx
		}
		seg.Name = idx
	}
	if n := len(b.segments); n > 0 {
		last := b.segments[n-1]
		if last.Generated == generated {
			b.segments[n-1] = seg
			return
		}
		if generated.Before(last.Generated) {
			// out of order input is a caller bug; keep the map well formed
			return
		}
	}
	b.segments = append(b.segments, seg)
}

func (b *Builder) Len() int {
	return len(b.segments)
}

func (b *Builder) Build() *Raw {
	names := b.names
	if names == nil {
		names = []string{}
	}
	return &Raw{
		Version:        3,
		File:           b.file,
		Sources:        b.sources,
		Names:          names,
		Mappings:       encode(b.segments),
		SourcesContent: b.contents,
	}
}

func encode(segments []Segment) string {
	var sb strings.Builder
	line := 0
	prevGenCol, prevSource, prevOrigLine, prevOrigCol, prevName := 0, 0, 0, 0, 0
	first := true
	for _, seg := range segments {
		for line < seg.Generated.Line {
			sb.WriteByte(';')
			line++
			prevGenCol = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		writeVLQ(&sb, seg.Generated.Character-prevGenCol)
		writeVLQ(&sb, seg.Source-prevSource)
		writeVLQ(&sb, seg.Original.Line-prevOrigLine)
		writeVLQ(&sb, seg.Original.Character-prevOrigCol)
		if seg.Name >= 0 {
			writeVLQ(&sb, seg.Name-prevName)
			prevName = seg.Name
		}
		prevGenCol = seg.Generated.Character
		prevSource = seg.Source
		prevOrigLine = seg.Original.Line
		prevOrigCol = seg.Original.Character
	}
	return sb.String()
}

// Decode expands the mappings into segments grouped by generated line.
// Segments that carry only a generated column have no original position and
// are dropped.
func Decode(raw *Raw) ([][]Segment, error) {
	if raw == nil {
		return nil, nil
	}
	var lines [][]Segment
	var current []Segment
	genCol, source, origLine, origCol, name := 0, 0, 0, 0, 0
	genLine := 0
	s := raw.Mappings

	for i := 0; i < len(s); {
		switch s[i] {
		case ';':
			lines = append(lines, current)
			current = nil
			genLine++
			genCol = 0
			i++
			continue
		case ',':
			i++
			continue
		}

		var fields [5]int
		n := 0
		for i < len(s) && s[i] != ',' && s[i] != ';' {
			if n == 5 {
				return nil, errors.Errorf("%w: segment with more than 5 fields on line %d", ErrInvalidMappings, genLine)
			}
			v, next, err := readVLQ(s, i)
			if err != nil {
				return nil, err
			}
			fields[n] = v
			n++
			i = next
		}

		switch n {
		case 1, 4, 5:
		default:
			return nil, errors.Errorf("%w: segment with %d fields on line %d", ErrInvalidMappings, n, genLine)
		}

		genCol += fields[0]
		if n == 1 {
			continue
		}
		source += fields[1]
		origLine += fields[2]
		origCol += fields[3]
		seg := Segment{
			Generated: position.Place{Line: genLine, Character: genCol},
			Source:    source,
			Original:  position.Place{Line: origLine, Character: origCol},
			Name:      -1,
		}
		if n == 5 {
			name += fields[4]
			seg.Name = name
		}
		current = append(current, seg)
	}
	lines = append(lines, current)

	return lines, nil
}
