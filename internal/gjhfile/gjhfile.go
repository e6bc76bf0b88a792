// Package gjhfile reads the auxiliary output written by the AMPL gjh solver.
//
// gjh evaluates a model at a point and writes the gradient of the objective,
// the constraint Jacobian and the Hessian of the Lagrangian as AMPL data
// statements:
//
//	param g :=
//		1	-2.5
//		3	1
//	;
//	param J :=
//	 [1,*]
//		1	1
//		2	4
//	;
//	param H :=
//	 [1,*]
//		1	2
//	;
//
// Indices in the file are 1-based; Info stores them 0-based. Variable and
// constraint names come from the .col and .row label files that sit next to
// the .gjh file when the problem was written with symbolic labels.
package gjhfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Entry is one sparse vector element.
type Entry struct {
	Index int     `json:"index" yaml:"index"`
	Value float64 `json:"value" yaml:"value"`
}

// MatrixEntry is one sparse matrix element.
type MatrixEntry struct {
	Row   int     `json:"row" yaml:"row"`
	Col   int     `json:"col" yaml:"col"`
	Value float64 `json:"value" yaml:"value"`
}

// Info is the parsed content of a .gjh file plus its labels.
type Info struct {
	Gradient    []Entry       `json:"gradient" yaml:"gradient"`
	Jacobian    []MatrixEntry `json:"jacobian" yaml:"jacobian"`
	Hessian     []MatrixEntry `json:"hessian" yaml:"hessian"`
	Variables   []string      `json:"variables" yaml:"variables"`
	Constraints []string      `json:"constraints" yaml:"constraints"`
}

// ReadFunc is the signature of Read, used by callers that inject a reader.
type ReadFunc func(path string) (*Info, error)

// ParseError reports a malformed line.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("gjhfile: %s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("gjhfile: line %d: %s", e.Line, e.Msg)
}

// Read parses the .gjh file at path and loads the variable and constraint
// labels from the sibling .col and .row files.
func Read(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gjh file: %w", err)
	}
	defer f.Close()

	info, err := Parse(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	if info.Variables, err = readLabels(stem + ".col"); err != nil {
		return nil, err
	}
	if info.Constraints, err = readLabels(stem + ".row"); err != nil {
		return nil, err
	}
	return info, nil
}

func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	// One label per line; labels may contain spaces.
	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	labels := make([]string, 0, len(lines))
	for _, line := range lines {
		labels = append(labels, strings.TrimSpace(line))
	}
	if len(labels) == 1 && labels[0] == "" {
		return []string{}, nil
	}
	return labels, nil
}

// Parse reads gjh data statements from r. The g, J and H params are all
// required; any other param is skipped.
func Parse(r io.Reader) (*Info, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	info := &Info{}
	seen := map[string]bool{}

	for p.next() {
		name, rest, ok := paramHeader(p.text)
		if !ok {
			continue
		}
		var err error
		switch name {
		case "g":
			info.Gradient, err = p.vector(rest)
		case "J":
			info.Jacobian, err = p.matrix(rest)
		case "H":
			info.Hessian, err = p.matrix(rest)
		default:
			err = p.skip(rest)
		}
		if err != nil {
			return nil, err
		}
		seen[name] = true
	}
	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gjh data: %w", err)
	}

	for _, name := range []string{"g", "J", "H"} {
		if !seen[name] {
			return nil, &ParseError{Line: p.line, Msg: fmt.Sprintf("missing param %s", name)}
		}
	}
	return info, nil
}

type parser struct {
	scanner *bufio.Scanner
	text    string
	line    int
}

func (p *parser) next() bool {
	if !p.scanner.Scan() {
		return false
	}
	p.line++
	p.text = strings.TrimSpace(p.scanner.Text())
	return true
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

// paramHeader splits "param NAME := REST" into NAME and REST.
func paramHeader(line string) (name, rest string, ok bool) {
	if !strings.HasPrefix(line, "param ") {
		return "", "", false
	}
	head, rest, found := strings.Cut(line[len("param "):], ":=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(head), strings.TrimSpace(rest), true
}

// body walks the lines of a param until the terminating ';', calling fn with
// each non-empty data line. rest is whatever followed ":=" on the header.
func (p *parser) body(rest string, fn func(string) error) error {
	line := rest
	for {
		end := false
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = strings.TrimSpace(line[:i])
			end = true
		}
		if line != "" && fn != nil {
			if err := fn(line); err != nil {
				return err
			}
		}
		if end {
			return nil
		}
		if !p.next() {
			return p.errorf("unterminated param, expected ';'")
		}
		line = p.text
	}
}

func (p *parser) skip(rest string) error {
	return p.body(rest, nil)
}

func (p *parser) vector(rest string) ([]Entry, error) {
	entries := []Entry{}
	err := p.body(rest, func(line string) error {
		idx, val, err := p.pair(line)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Index: idx, Value: val})
		return nil
	})
	return entries, err
}

func (p *parser) matrix(rest string) ([]MatrixEntry, error) {
	entries := []MatrixEntry{}
	row := -1
	err := p.body(rest, func(line string) error {
		if strings.HasPrefix(line, "[") {
			r, err := p.rowMarker(line)
			if err != nil {
				return err
			}
			row = r
			return nil
		}
		if row < 0 {
			return p.errorf("matrix entry before row marker")
		}
		col, val, err := p.pair(line)
		if err != nil {
			return err
		}
		entries = append(entries, MatrixEntry{Row: row, Col: col, Value: val})
		return nil
	})
	return entries, err
}

// rowMarker parses "[3,*]" into the 0-based row 2.
func (p *parser) rowMarker(line string) (int, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	head, _, _ := strings.Cut(inner, ",")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n < 1 {
		return 0, p.errorf("bad row marker %q", line)
	}
	return n - 1, nil
}

// pair parses "INDEX VALUE" into a 0-based index and a value.
func (p *parser) pair(line string) (int, float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, p.errorf("expected index and value, got %q", line)
	}
	idx, err := strconv.Atoi(fields[0])
	if err != nil || idx < 1 {
		return 0, 0, p.errorf("bad index %q", fields[0])
	}
	val, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, p.errorf("bad value %q", fields[1])
	}
	return idx - 1, val, nil
}

// NumVariables is the number of labelled variables.
func (i *Info) NumVariables() int { return len(i.Variables) }

// NumConstraints is the number of labelled constraints.
func (i *Info) NumConstraints() int { return len(i.Constraints) }

// GradientByName maps variable labels to their gradient entries. Entries
// without a label are keyed by their 0-based index.
func (i *Info) GradientByName() map[string]float64 {
	out := make(map[string]float64, len(i.Gradient))
	for _, e := range i.Gradient {
		out[i.varName(e.Index)] = e.Value
	}
	return out
}

// DenseGradient expands the sparse gradient to a vector of length n.
func (i *Info) DenseGradient(n int) []float64 {
	out := make([]float64, n)
	for _, e := range i.Gradient {
		if e.Index < n {
			out[e.Index] = e.Value
		}
	}
	return out
}

func (i *Info) varName(idx int) string {
	if idx < len(i.Variables) {
		return i.Variables[idx]
	}
	return strconv.Itoa(idx)
}
