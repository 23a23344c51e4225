package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// topologySchema constrains CUE topology files before decoding. CUE
// unification reports violations with positions, which beats decoding
// into Go and checking afterwards.
const topologySchema = `
topology: {
	name: string & !=""
	zones: [...{
		id:   string & !=""
		name: string | *""
		adjacent?: [...string]
		areas: [...{
			id:    string & !=""
			slots: int & >0
		}]
	}]
}
`

// CUEParser parses topology definitions written in CUE.
type CUEParser struct {
	ctx *cue.Context
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	return &CUEParser{ctx: cuecontext.New()}
}

// ParseTopologyFile parses a CUE topology file.
func (cp *CUEParser) ParseTopologyFile(path string) (*Topology, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	topo, verrs := cp.ParseTopology(string(content), path)
	if len(verrs) > 0 {
		return nil, fmt.Errorf("invalid topology %s: %s", path, verrs[0].Error())
	}
	return topo, nil
}

// ParseTopology compiles CUE content, unifies it with the topology
// schema, and decodes the topology field. All schema violations are
// returned as validation errors.
func (cp *CUEParser) ParseTopology(content, filename string) (*Topology, []ValidationError) {
	val := cp.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, convertCUEErrors(err)
	}

	schema := cp.ctx.CompileString(topologySchema)
	unified := val.Unify(schema)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEErrors(err)
	}

	topoVal := unified.LookupPath(cue.ParsePath("topology"))
	if !topoVal.Exists() {
		return nil, []ValidationError{{
			File:     filename,
			Path:     "topology",
			Message:  "missing topology field",
			Severity: "error",
		}}
	}

	var topo Topology
	if err := topoVal.Decode(&topo); err != nil {
		return nil, []ValidationError{{
			File:     filename,
			Path:     "topology",
			Message:  fmt.Sprintf("failed to decode topology: %v", err),
			Severity: "error",
		}}
	}

	return &topo, nil
}

// convertCUEErrors converts CUE errors to a ValidationError slice with
// file positions.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		pos := errors.Positions(e)
		var file string
		var line, column int
		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}
		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}
