package pipeline

import "fmt"

// NoNumericValuesMessage is reported when a numeric field has no usable values in the batch.
const NoNumericValuesMessage = "No valid numeric values found"

// NonNumericFieldError rejects a stats request for a field that is not
// classified numeric or integer in the current batch.
type NonNumericFieldError struct {
	Field string
	// Type is the field's classification; Known is false when the field was not classified at all.
	Type      FieldType
	Known     bool
	Available []string
}

func (e *NonNumericFieldError) Error() string {
	if !e.Known {
		return fmt.Sprintf("field '%s' must be numeric: not found in batch", e.Field)
	}
	return fmt.Sprintf("field '%s' must be numeric: classified %s", e.Field, e.Type)
}

// Rejection is the structured body reported for a NonNumericFieldError.
type Rejection struct {
	Success                bool     `json:"success" yaml:"success"`
	Error                  string   `json:"error" yaml:"error"`
	Message                string   `json:"message" yaml:"message"`
	AvailableNumericFields []string `json:"availableNumericFields" yaml:"availableNumericFields"`
}

// Rejection renders the error as the caller-facing rejection body.
func (e *NonNumericFieldError) Rejection() *Rejection {
	avail := e.Available
	if avail == nil {
		avail = []string{}
	}
	return &Rejection{
		Success:                false,
		Error:                  "Invalid numeric field",
		Message:                fmt.Sprintf("Field '%s' must be numeric", e.Field),
		AvailableNumericFields: avail,
	}
}
