package cli

import "errors"

// ErrUsage marks errors caused by how wxo-studio was invoked (bad flags,
// missing arguments, unusable configuration) rather than by the operation
// itself. main maps it to exit code 2.
var ErrUsage = errors.New("usage error")

type usageError struct {
	msg string
}

// newUsageError wraps a message so errors.Is(err, ErrUsage) reports true.
func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
