package mqtt

import "fmt"

func TopicDeviceCommand(prefix, deviceKey string) string {
	return fmt.Sprintf("%s/device/%s/command", prefix, deviceKey)
}

func TopicDeviceState(prefix string) string {
	return fmt.Sprintf("%s/device/+/state", prefix)
}

func TopicDeviceStateFor(prefix, deviceKey string) string {
	return fmt.Sprintf("%s/device/%s/state", prefix, deviceKey)
}
