package errmsg

import (
	"errors"
	"fmt"
)

func messages() []error {
	return []error{
		errors.New("Bad message"),     // want "error message should not be capitalized"
		errors.New("bad message."),    // want "error message should not end with punctuation"
		fmt.Errorf("failed: %d\n", 1), // want "error message should not end with punctuation"
		errors.New("HTTP failed"),
		errors.New("good message"),
		fmt.Errorf("wrapped: %w", errors.New("inner")),
	}
}
