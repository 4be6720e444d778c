// Package catalog compiles definition catalogs authored in CUE.
//
// A catalog is a CUE package with a top-level "def" struct. Each field is
// one definition; the label is only a handle for error messages:
//
//	package catalog
//
//	def: foo: {
//		repo:       "github.com/a/b"
//		rev:        "main"
//		path:       "GoPackage/github.com/a/b/-/Foo"
//		name:       "Foo"
//		kind:       "func"
//		file:       "foo.go"
//		start_line: 10
//		end_line:   20
//		doc:        "<p>Foo does things.</p>"
//	}
//
// doc is HTML and is sanitized on compile; scripts and event handlers are
// dropped.
//
//	def: gone: {
//		repo:  "github.com/a/b"
//		rev:   "main"
//		path:  "GoPackage/github.com/a/b/-/Gone"
//		error: {status: 410, message: "gone"}
//	}
package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/microcosm-cc/bluemonday"

	"github.com/roach88/withdef/internal/ir"
)

// CompileError is a catalog entry error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var docPolicy = bluemonday.UGCPolicy()

// CompileDef turns one catalog entry into a Def.
func CompileDef(v cue.Value) (*ir.Def, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.Def{}
	var err error

	if def.Key.Repo, err = requiredString(v, "repo"); err != nil {
		return nil, err
	}
	if def.Key.Rev, err = requiredString(v, "rev"); err != nil {
		return nil, err
	}
	if def.Key.Def, err = requiredString(v, "path"); err != nil {
		return nil, err
	}

	optional := []struct {
		field string
		dst   *string
	}{
		{"name", &def.Name},
		{"kind", &def.Kind},
		{"file", &def.File},
		{"doc", &def.DocHTML},
	}
	for _, o := range optional {
		if *o.dst, err = optionalString(v, o.field); err != nil {
			return nil, err
		}
	}

	def.DocHTML = docPolicy.Sanitize(def.DocHTML)

	if def.StartLine, err = optionalInt(v, "start_line"); err != nil {
		return nil, err
	}
	if def.EndLine, err = optionalInt(v, "end_line"); err != nil {
		return nil, err
	}
	if def.EndLine != 0 && def.EndLine < def.StartLine {
		return nil, &CompileError{
			Field:   "end_line",
			Message: fmt.Sprintf("end_line %d is before start_line %d", def.EndLine, def.StartLine),
			Pos:     v.LookupPath(cue.ParsePath("end_line")).Pos(),
		}
	}

	errVal := v.LookupPath(cue.ParsePath("error"))
	if errVal.Exists() {
		defErr := &ir.DefError{}
		status, err := optionalInt(errVal, "status")
		if err != nil {
			return nil, err
		}
		defErr.Status = int(status)
		if defErr.Message, err = optionalString(errVal, "message"); err != nil {
			return nil, err
		}
		if defErr.IsZero() {
			return nil, &CompileError{
				Field:   "error",
				Message: "error needs a status or a message",
				Pos:     errVal.Pos(),
			}
		}
		def.Error = defErr
	}

	return def, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " must not be empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < 0 {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s must not be negative", field),
			Pos:     fv.Pos(),
		}
	}
	return n, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
