// Package logscan recognizes Anchor event payloads inside Solana
// transaction log lines.
//
// The pipeline already knows which program produced a given log
// stream, from the subscription or the fetched transaction's account
// keys, so this scanner only needs to recognize the "Program data:"
// line shape rather than track the program invoke stack itself.
package logscan

import (
	"encoding/base64"
	"strings"
)

// dataPrefix is the exact literal Anchor's sol_log_data emits before
// the base64 payload, including its single trailing space.
const dataPrefix = "Program data: "

// Scan inspects one log line and returns the decoded candidate event
// payload (discriminator-prefixed) if the line carries one.
//
// programID is accepted for attribution by callers that want to
// cross-check surrounding "Program <id> invoke" lines; this scanner
// itself only recognizes the data-prefix shape.
func Scan(line string, programID string) ([]byte, bool) {
	_ = programID
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if rest == "" {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, false
	}
	return data, true
}
