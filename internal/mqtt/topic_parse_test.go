package mqtt

import "testing"

func TestParseDeviceKey(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		prefix  string
		want    string
		wantErr bool
	}{
		{name: "state topic", topic: "domo/device/luz_sala/state", prefix: "domo", want: "luz_sala"},
		{name: "nested prefix", topic: "home/domo/device/puerta_garage/state", prefix: "home/domo", want: "puerta_garage"},
		{name: "prefix mismatch", topic: "other/device/luz_sala/state", prefix: "domo", wantErr: true},
		{name: "wrong pattern", topic: "domo/terminal/luz_sala/state", prefix: "domo", wantErr: true},
		{name: "too short", topic: "domo/device", prefix: "domo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeviceKey(tt.topic, tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDeviceKey(%q) expected error, got %q", tt.topic, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeviceKey(%q) failed: %v", tt.topic, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDeviceKey(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}

func TestCommandTopic(t *testing.T) {
	got := TopicDeviceCommand("domo", "luz_sala")
	if got != "domo/device/luz_sala/command" {
		t.Fatalf("TopicDeviceCommand = %q", got)
	}
	key, err := ParseDeviceKey(TopicDeviceStateFor("domo", "luz_sala"), "domo")
	if err != nil || key != "luz_sala" {
		t.Fatalf("round trip = (%q, %v)", key, err)
	}
}
