package chunker

import (
	"errors"
	"fmt"
)

// ErrCapacityTooSmall is matched by every ConfigurationError.
var ErrCapacityTooSmall = errors.New("capacity too small for chunk tag")

// ConfigurationError reports a capacity that cannot hold the tag of Seq plus
// one payload byte. It is a setup mistake, not a property of the input.
type ConfigurationError struct {
	MaxEncodableSize int
	Seq              int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("max encodable size %d cannot hold tag %q plus one byte", e.MaxEncodableSize, Tag(e.Seq))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrCapacityTooSmall
}
