package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/withdef/internal/ir"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes, shared with the CLI's JSON output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeInvalidDef  = "E010" // Entry failed to compile
	ErrCodeDuplicate   = "E011" // Two entries share a key
)

// LoadResult contains the definitions compiled from a catalog.
type LoadResult struct {
	Defs      []ir.Def
	FileCount int
}

// LoadError is a catalog loading error.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles every .cue file in dir as one CUE package.
// In LoadModeFailFast it returns on the first error; in LoadModeCollectAll
// it compiles every entry it can and returns all errors.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result, errs := compileValue(value, mode)
	result.FileCount = len(files)
	return result, errs
}

// LoadString compiles a catalog held in memory. filename is used in error
// positions only.
func LoadString(src, filename string, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	result, errs := compileValue(value, mode)
	result.FileCount = 1
	return result, errs
}

func compileValue(value cue.Value, mode LoadMode) (*LoadResult, []error) {
	result := &LoadResult{}
	var errs []error

	defsVal := value.LookupPath(cue.ParsePath("def"))
	if !defsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no def entries found in catalog"}}
	}

	iter, err := defsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating defs: %v", err)}}
	}

	seen := make(map[ir.DefKey]string)
	for iter.Next() {
		label := iter.Selector().String()
		def, err := CompileDef(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "def."+label))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		if prev, dup := seen[def.Key]; dup {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("def.%s: same key as def.%s (%s)", label, prev, def.Key),
				Pos:     iter.Value().Pos(),
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		seen[def.Key] = label

		result.Defs = append(result.Defs, *def)
	}

	if len(result.Defs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no def entries found in catalog"})
	}

	return result, errs
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeInvalidDef,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
