package errors

// Error codes. The numbering groups codes by subsystem: 1xx input, 2xx
// conversion, 3xx query, 4xx storage, 5xx config/internal.
const (
	// ErrCodeInputNotFound: the input path does not exist. Fatal to the call.
	ErrCodeInputNotFound = "ERR_101_INPUT_NOT_FOUND"

	// ErrCodeUnsupportedFormat: file extension not recognized. Fatal for a
	// single-file add, skipped with a warning during a directory add.
	ErrCodeUnsupportedFormat = "ERR_102_UNSUPPORTED_FORMAT"

	// ErrCodeConverterFailed: a converter rejected its input. The file is
	// skipped; the batch continues.
	ErrCodeConverterFailed = "ERR_201_CONVERTER_FAILED"

	// ErrCodeQueryInvalid: the rewritten query was rejected by the storage
	// engine. Details carry the original and rewritten forms.
	ErrCodeQueryInvalid = "ERR_301_QUERY_INVALID"

	// ErrCodeStorage: persistence-layer I/O or schema error. Fatal to the
	// enclosing call; transactions guarantee no partial writes.
	ErrCodeStorage = "ERR_401_STORAGE"

	// ErrCodeConfigInvalid: configuration failed validation.
	ErrCodeConfigInvalid = "ERR_501_CONFIG_INVALID"

	// ErrCodeInternal: unexpected internal failure.
	ErrCodeInternal = "ERR_502_INTERNAL"
)

// InputNotFound creates an input-not-found error for a path.
func InputNotFound(path string, cause error) *Error {
	return New(ErrCodeInputNotFound, "input not found: "+path, cause).
		WithDetail("path", path)
}

// UnsupportedFormat creates an unsupported-format error for a path.
func UnsupportedFormat(path string) *Error {
	return New(ErrCodeUnsupportedFormat, "unsupported format: "+path, nil).
		WithDetail("path", path)
}

// ConverterFailed wraps a converter error for a path.
func ConverterFailed(path string, cause error) *Error {
	return New(ErrCodeConverterFailed, "conversion failed: "+path, cause).
		WithDetail("path", path)
}

// QueryInvalid creates an invalid-query error carrying both query forms.
func QueryInvalid(original, rewritten string, cause error) *Error {
	return New(ErrCodeQueryInvalid, "invalid query", cause).
		WithDetail("query", original).
		WithDetail("rewritten", rewritten)
}

// Storage wraps a persistence-layer failure.
func Storage(message string, cause error) *Error {
	return New(ErrCodeStorage, message, cause)
}

// ConfigInvalid creates a configuration validation error.
func ConfigInvalid(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}
