package plan

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// LoadMode selects how far loading continues past the first error.
type LoadMode int

const (
	// LoadModeFailFast returns at the first error.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll keeps going and returns every error at once.
	LoadModeCollectAll
)

// LoadResult holds whatever loading produced, even when errors were also
// returned: under LoadModeCollectAll the valid plans load alongside the
// errors of the invalid ones.
type LoadResult struct {
	Plans     []Plan
	CUEValue  cue.Value // unified value, for callers that inspect beyond plans
	FileCount int
}

// LoadError is a coded, positioned plan-loading failure.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // zero when the failure has no single source position
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Loader error codes. E0xx covers loading and schema problems, E1xx the
// cross-field plan checks CUE cannot express.
const (
	ErrCodeGeneric     = "E001" // unclassified
	ErrCodeScanError   = "E002" // directory walk failed
	ErrCodeNoFiles     = "E003" // no .cue files in the directory
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path missing or not a directory
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeSchema      = "E007" // schema violation

	ErrCodeOddsStart = "E101" // odds-only start not odd
	ErrCodeOddsStep  = "E102" // odds-only step missing or odd
)

// LoadPlans loads every plan under dir, unifies it with the embedded
// schema, and runs the cross-field checks. The returned result is non-nil
// once extraction begins, so collect-all callers can use the valid plans
// next to the errors of the invalid ones.
func LoadPlans(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("plans directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing plans directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// The directory is one CUE instance; all plan files share a package.
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
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

	// Unify with the embedded schema so every plan member is constrained.
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("compiling plan schema: %v", err)}}
	}
	merged := value.Unify(schema)
	if err := merged.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		errs = append(errs, schemaErrors(err, mode)...)
		if mode == LoadModeFailFast {
			return nil, errs
		}
	}

	result := &LoadResult{
		CUEValue:  merged,
		FileCount: len(cueFiles),
	}

	plansVal := merged.LookupPath(cue.ParsePath("plan"))
	if plansVal.Exists() {
		iter, iterErr := plansVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating plans: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				var p Plan
				if decodeErr := iter.Value().Decode(&p); decodeErr != nil {
					errs = append(errs, &LoadError{
						Code:    ErrCodeSchema,
						Message: fmt.Sprintf("plan %q: %v", iter.Label(), decodeErr),
						Pos:     iter.Value().Pos(),
					})
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				p.Name = iter.Label()

				bad := false
				for _, vErr := range p.Validate() {
					errs = append(errs, convertValidationError(vErr, p.Name, iter.Value().Pos()))
					bad = true
					if mode == LoadModeFailFast {
						return result, errs
					}
				}
				if bad {
					continue
				}
				result.Plans = append(result.Plans, p)
			}
		}
	}

	if len(result.Plans) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no plans found"})
	}

	return result, errs
}

// FindCUEFiles returns every .cue file under dir, recursively.
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

// schemaErrors expands a CUE validation error into positioned LoadErrors.
// Fail-fast keeps only the first.
func schemaErrors(err error, mode LoadMode) []error {
	var out []error
	for _, ce := range cueerrors.Errors(err) {
		out = append(out, &LoadError{
			Code:    ErrCodeSchema,
			Message: ce.Error(),
			Pos:     ce.Position(),
		})
		if mode == LoadModeFailFast {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, &LoadError{Code: ErrCodeSchema, Message: err.Error()})
	}
	return out
}

// convertValidationError maps a cross-field validation failure to a coded
// LoadError at the plan's position.
func convertValidationError(err error, name string, pos token.Pos) *LoadError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return &LoadError{
			Code:    mapFieldToErrorCode(vErr.Field),
			Message: fmt.Sprintf("plan %q: %s", name, vErr.Message),
			Pos:     pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("plan %q: %v", name, err),
		Pos:     pos,
	}
}

// mapFieldToErrorCode maps a validation error field to an error code.
func mapFieldToErrorCode(field string) string {
	switch field {
	case "start":
		return ErrCodeOddsStart
	case "step":
		return ErrCodeOddsStep
	default:
		return ErrCodeGeneric
	}
}
