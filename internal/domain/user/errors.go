package user

import "errors"

var (
	ErrForbidden               = errors.New("you are not allowed to perform this action")
	ErrAdminPrivilegeRequired  = errors.New("admin privilege required")
	ErrEmployeeProfileRequired = errors.New("an employee profile is required for this action")
	ErrUnauthenticated         = errors.New("authentication required")
)
