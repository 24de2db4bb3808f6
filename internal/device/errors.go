package device

// GPUError reports a backend failure: allocation, driver, or dispatch. The
// message is opaque to callers; it is forwarded, never swallowed.
type GPUError struct {
	Message string
	Err     error // underlying backend error, if any
}

func (e *GPUError) Error() string {
	if e.Err != nil {
		return "gpu error: " + e.Message + ": " + e.Err.Error()
	}
	return "gpu error: " + e.Message
}

func (e *GPUError) Unwrap() error {
	return e.Err
}
