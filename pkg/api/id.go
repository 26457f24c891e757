package api

import (
	"strings"

	"github.com/google/uuid"
)

const responseIDPrefix = "chatcmpl-"

// NewResponseID generates a response ID with the "chatcmpl-" prefix.
// Adapters use it to synthesize an ID when the upstream does not supply one.
func NewResponseID() string {
	return responseIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
