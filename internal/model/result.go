package model

// GenerationRequest is built fresh for every callable sent to the backend.
type GenerationRequest struct {
	Index    int // signature index in the Table
	Style    Style
	Existing string // existing docstring text in improve mode
	Prompt   string
}

// ResultStatus is the outcome of synthesis for one callable.
type ResultStatus string

const (
	Generated ResultStatus = "generated"
	Existing  ResultStatus = "existing" // not sent: already documented and improve is off
	Excluded  ResultStatus = "excluded" // not sent: filtered by inclusion rules
	Failed    ResultStatus = "failed"
)

// FailureKind classifies a failed generation.
type FailureKind string

const (
	NoFailure         FailureKind = ""
	BackendError      FailureKind = "backend_error"
	EmptyResponse     FailureKind = "empty_response"
	MalformedResponse FailureKind = "malformed_response"
	Cancelled         FailureKind = "cancelled"
	Unconfigured      FailureKind = "unconfigured"
)

// GenerationResult is one-to-one with a signature of the input table.
type GenerationResult struct {
	Index         int
	QualifiedName string
	Status        ResultStatus
	Docstring     string // style-conformant body without quotes
	Failure       FailureKind
	Err           error
	Attempts      int
	Notes         []string // code issues reported by the backend alongside the docstring
}

// OK reports whether the result carries a docstring to merge.
func (r *GenerationResult) OK() bool {
	return r.Status == Generated && r.Docstring != ""
}

// Pair couples a signature with its generation result for merging.
type Pair struct {
	Signature *CallableSignature
	Result    *GenerationResult
}
