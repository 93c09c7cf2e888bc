package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterHeader(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Header("Relief Coordinator")
	assert.Equal(t,
		"======================\n  Relief Coordinator\n======================\n",
		buf.String())
}

func TestPrinterSection(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Section("Delivery Plan")
	assert.Equal(t, "\nDelivery Plan\n-------------\n", buf.String())
}

func TestPrinterKVAlignment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.KV("Origin", "%s", "Test Depot")
	p.KV("Total reports", "%d", 12)
	assert.Equal(t,
		"  Origin:                Test Depot\n"+
			"  Total reports:         12\n",
		buf.String())
}

func TestPrinterBulletAndLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Bullet("%s: %s", "(35.5, -82.5)", "blocked")
	p.Line("done")
	p.Blank()
	assert.Equal(t, "  - (35.5, -82.5): blocked\ndone\n\n", buf.String())
}
