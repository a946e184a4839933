package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrGeometryInconsistency marks calibration data that cannot describe a
	// physical detector bank. It is fatal for the bank being built.
	ErrGeometryInconsistency = errors.New("geometry inconsistency")

	// ErrInvalidRecord marks a facility bank record with missing or malformed fields
	ErrInvalidRecord = errors.New("invalid bank record")
)

// BankError reports why a bank could not be constructed.
type BankError struct {
	BankID int
	Reason string
	Err    error
}

func (e *BankError) Error() string {
	return fmt.Sprintf("bank %d: %s", e.BankID, e.Reason)
}

func (e *BankError) Unwrap() error { return e.Err }

func inconsistent(bankID int, format string, args ...any) error {
	return &BankError{BankID: bankID, Reason: fmt.Sprintf(format, args...), Err: ErrGeometryInconsistency}
}

func invalidRecord(bankID int, format string, args ...any) error {
	return &BankError{BankID: bankID, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidRecord}
}
