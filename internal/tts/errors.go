package tts

import "fmt"

// UnitError reports a synthesizer failure for a single speech unit. The
// driver aborts the remaining units when one fails; there is no retry.
type UnitError struct {
	Index int    // zero-based position of the unit in the segmented text
	Text  string // the unit's original text
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("synthesis failed at unit %d (%q): %v", e.Index, e.Text, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
