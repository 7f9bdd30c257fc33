package record

import "errors"

var (
	ErrUnknownInput = errors.New("record: unknown serial number")
	ErrAlreadySpent = errors.New("record: serial number already spent")
)
