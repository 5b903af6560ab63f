package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the body of every non-2xx answer.
type Response struct {
	Message string `json:"message"`
}

func Error(msg string) Response {
	return Response{
		Message: msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		field := strings.ToLower(err.Field())

		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", field))
		case "min", "max", "gte", "lte":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is out of range", field))
		case "datetime":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be a date in YYYY-MM-DD format", field))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", field))
		}
	}

	return Response{
		Message: strings.Join(errMsgs, ", "),
	}
}
