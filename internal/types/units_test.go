package types

import (
	"fmt"
	"testing"
)

func TestParseMemoryBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"512", 512, false},
		{"1024", 1024, false},
		{"1K", 1000, false},
		{"1Ki", 1024, false},
		{"2M", 2000000, false},
		{"2Mi", 2097152, false},
		{"1G", 1000000000, false},
		{"1Gi", 1073741824, false},
		{"0.5Gi", 536870912, false},
		{"1.5Ki", 1536, false},
		{"1T", 1000000000000, false},
		{"1Ti", 1099511627776, false},
		{" 256Mi ", 268435456, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1X", 0, true},
		{"1KB", 0, true},
		{"1k", 0, true},
		{"-1Ki", 0, true},
		{"-5", 0, true},
		{"1.5", 0, true},
		{"Ki", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemoryBytes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMemoryBytes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMemoryBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMemoryBytesMultiples(t *testing.T) {
	for n := int64(0); n <= 4096; n += 512 {
		binary, err := ParseMemoryBytes(fmt.Sprintf("%dKi", n))
		if err != nil {
			t.Fatalf("ParseMemoryBytes(%dKi) error = %v", n, err)
		}
		if binary != n*1024 {
			t.Errorf("ParseMemoryBytes(%dKi) = %d, want %d", n, binary, n*1024)
		}
		decimal, err := ParseMemoryBytes(fmt.Sprintf("%dK", n))
		if err != nil {
			t.Fatalf("ParseMemoryBytes(%dK) error = %v", n, err)
		}
		if decimal != n*1000 {
			t.Errorf("ParseMemoryBytes(%dK) = %d, want %d", n, decimal, n*1000)
		}
	}
}
