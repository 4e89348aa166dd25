package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// LoadError describes a definition that could not be read or decoded.
type LoadError struct {
	File    string
	Line    int // 0 when unknown
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Load reads the definition at path. The extension selects the format:
// .yaml/.yml, .json or .cue. Unknown fields are rejected in YAML and JSON.
//
// Relative sqlite paths in the definition are resolved against the
// directory of path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read report: %v", err)}
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = decodeYAML(path, data)
	case ".json":
		def, err = decodeJSON(path, data)
	case ".cue":
		def, err = decodeCUE(path, data)
	default:
		return nil, &LoadError{File: path, Message: fmt.Sprintf("unsupported report format %q (want .yaml, .json or .cue)", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}

	resolvePaths(def, filepath.Dir(path))
	return def, nil
}

func decodeYAML(path string, data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &def, nil
}

func decodeJSON(path string, data []byte) (*Definition, error) {
	var def Definition
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		lerr := &LoadError{File: path, Message: fmt.Sprintf("failed to parse JSON: %v", err)}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			lerr.Line, lerr.Column = lineCol(data, syn.Offset)
		}
		return nil, lerr
	}
	return &def, nil
}

// decodeCUE evaluates the file and decodes the top-level struct.
// Constraints and defaults written in CUE are resolved before decoding,
// so a definition can compute values (e.g. shared field lists).
func decodeCUE(path string, data []byte) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(path, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(path, err)
	}

	var def Definition
	if err := v.Decode(&def); err != nil {
		return nil, cueLoadError(path, err)
	}
	return &def, nil
}

// cueLoadError extracts the first position from a CUE error.
func cueLoadError(path string, err error) *LoadError {
	lerr := &LoadError{File: path, Message: err.Error()}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return lerr
	}
	first := errs[0]
	lerr.Message = first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		lerr.Line = positions[0].Line()
		lerr.Column = positions[0].Column()
	}
	return lerr
}

func resolvePaths(def *Definition, baseDir string) {
	for i, ds := range def.DataSources {
		if ds.Kind == KindSQLite && ds.Path != "" && !filepath.IsAbs(ds.Path) && baseDir != "" {
			def.DataSources[i].Path = filepath.Join(baseDir, ds.Path)
		}
	}
}

// lineCol converts a byte offset to a 1-based line and column.
func lineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := int(offset) - bytes.LastIndexByte(before, '\n')
	return line, col
}
