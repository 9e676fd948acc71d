package types

import "errors"

// Domain errors for document validation
var (
	ErrModuleNameRequired    = errors.New("module name is required")
	ErrClassNameRequired     = errors.New("class name and qualified name are required")
	ErrFunctionNameRequired  = errors.New("function name and qualified name are required")
	ErrParameterNameRequired = errors.New("parameter name is required")
	ErrInvalidParameterKind  = errors.New("invalid parameter kind")
	ErrNullEntry             = errors.New("null entry")
)
