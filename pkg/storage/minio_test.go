package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"pothole.jpg", "reports/r1/pothole.jpg"},
		{"../../etc/passwd", "reports/r1/passwd"},
		{`C:\Users\me\leak.png`, "reports/r1/leak.png"},
		{"", "reports/r1/image"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectName("r1", tt.filename), tt.filename)
	}
}
