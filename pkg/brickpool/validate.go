package brickpool

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/iamBelugaa/brickpool/pkg/errors"
)

func isValidRecordID(id int64) error {
	if id < 0 {
		return errors.NewFieldRangeError("id", id, 0, "unbounded")
	}
	return nil
}

func isValidRecord(data []byte, recordSize int) error {
	if len(data) == 0 {
		return errors.NewRequiredFieldError("data").WithExpected(recordSize).WithProvided(0)
	}

	if len(data) != recordSize {
		return errors.NewValidationError(
			nil, errors.ErrValidationInvalidData,
			fmt.Sprintf(
				"Record of %s does not match the store record size of %s",
				humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(recordSize)),
			),
		).
			WithProvided(len(data)).
			WithExpected(recordSize)
	}

	return nil
}
