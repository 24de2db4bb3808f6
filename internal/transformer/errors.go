package transformer

// ModelLoadError reports a corrupt or incompatible persisted model.
type ModelLoadError struct {
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return "model load error: " + e.Reason + ": " + e.Err.Error()
	}
	return "model load error: " + e.Reason
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// SerializationError reports a failure while writing a model out.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return "serialization error: " + e.Reason + ": " + e.Err.Error()
	}
	return "serialization error: " + e.Reason
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
