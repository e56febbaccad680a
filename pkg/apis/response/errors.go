package response

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON:              "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:                "Request body error",
	ErrCodeResourceExists:             "Resource %s already exists.",
	ErrCodeResourceNotFound:           "Resource %s not found.",
	ErrCodeLegalActionNotFound:        "Legal action not found.",
	ErrCodeDeviceNotFound:             "Device %s not found.",
	ErrCodeDeviceNotConnect:           "Device %s is not connected.",
	ErrCodeDeviceOperatorUnSupported:  "Device operator %s is not supported.",
	ErrCodeTooManyJsonPatchOperations: "The allowed maximum operations in a JSON patch is %d.",
	ErrCodeDeviceTypeUnSupported:      "Device type is not supported.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

var ErrLegalActionNotFound = &responseError{
	Code:    ErrCodeLegalActionNotFound,
	Message: errors[ErrCodeLegalActionNotFound],
}

var ErrDeviceType = &responseError{
	Code:    ErrCodeDeviceTypeUnSupported,
	Message: errors[ErrCodeDeviceTypeUnSupported],
}
