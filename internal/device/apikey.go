package device

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// GenerateAPIKey derives the device API key from its identifier and
// ordered conditions. The same inputs always give the same key, so a key
// changes exactly when the device identifier or any condition changes.
//
// The key is base64 of deviceId followed by "|<type><operator><value>"
// per condition, e.g. "esp-01|temperature>30|humidity<20".
func GenerateAPIKey(deviceID string, conditions []Condition) string {
	var b strings.Builder
	b.WriteString(deviceID)
	for _, c := range conditions {
		b.WriteByte('|')
		b.WriteString(string(c.Type))
		b.WriteString(c.Operator)
		if c.Value != nil {
			b.WriteString(strconv.FormatFloat(*c.Value, 'f', -1, 64))
		}
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}
