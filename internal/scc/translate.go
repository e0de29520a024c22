package scc

// Kind partitions return codes into host-level outcomes.
type Kind int

const (
	KindSuccess Kind = iota
	KindInformational
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindInformational:
		return "informational"
	default:
		return "error"
	}
}

// Status is a translated provider return code.
type Status struct {
	Kind Kind
	Code ReturnCode
}

// Success is the zero-code status.
var Success = Status{Kind: KindSuccess, Code: OK}

// Canceled is the status reported when the user backed out of a provider dialog.
var Canceled = Status{Kind: KindInformational, Code: OperationCanceled}

// Translate maps a provider return code to a host-level status.
func Translate(rc ReturnCode) Status {
	switch {
	case rc.IsSuccess():
		return Success
	case rc.IsInformational():
		return Status{Kind: KindInformational, Code: rc}
	default:
		return Status{Kind: KindError, Code: rc}
	}
}

// IsCanceled reports whether the status is the user-cancel informational code.
func (s Status) IsCanceled() bool {
	return s.Kind == KindInformational && s.Code == OperationCanceled
}

// Err returns a *ProviderError for error statuses and nil otherwise.
func (s Status) Err(op, detail string) error {
	if s.Kind != KindError {
		return nil
	}
	return &ProviderError{Op: op, Code: s.Code, Detail: detail}
}

func (s Status) String() string {
	if s.Kind == KindSuccess {
		return s.Kind.String()
	}
	return s.Kind.String() + "(" + s.Code.String() + ")"
}
