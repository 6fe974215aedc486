package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrUserIDTaken      = errors.New("user is already linked to another employee")
)
