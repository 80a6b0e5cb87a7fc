package mqtt

import (
	"fmt"
	"strings"
)

// expected: {prefix}/device/{deviceKey}/{kind}
func ParseDeviceKey(topic, prefix string) (string, error) {
	parts := strings.Split(topic, "/")
	prefixParts := strings.Split(prefix, "/")
	if len(parts) < len(prefixParts)+3 {
		return "", fmt.Errorf("invalid topic: %s", topic)
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", fmt.Errorf("topic prefix mismatch: %s", topic)
		}
	}
	if parts[len(prefixParts)] != "device" {
		return "", fmt.Errorf("invalid topic pattern: %s", topic)
	}
	return parts[len(prefixParts)+1], nil
}
