package runtime

import (
	"encoding/json"

	"github.com/aretw0/signaltree/pkg/domain"
)

// checkSerializable rejects initial args that encoding/json refuses: cycles,
// functions, channels, NaN and infinities. It only checks that the args are
// JSON-encodable. The encoding may still be lossy: unexported struct fields
// are dropped and numbers decode as float64 on the way back.
func checkSerializable(args map[string]any) error {
	if len(args) == 0 {
		return nil
	}
	if _, err := json.Marshal(args); err != nil {
		return &domain.SerializationError{Err: err}
	}
	return nil
}
