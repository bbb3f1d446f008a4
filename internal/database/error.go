package database

import "strings"

const (
	duplicateKeyErrString = "duplicate key"
)

//IsDuplicateKeyErr reports whether err is a unique constraint violation.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), duplicateKeyErrString)
}
