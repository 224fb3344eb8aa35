package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"svsp-upload/internal/upload"
)

func TestColor(t *testing.T) {
	tests := []struct {
		status upload.Status
		want   string
	}{
		{upload.Idle, Black},
		{upload.Uploading, Blue},
		{upload.Success, Green},
		{upload.Error, Red},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Color(tt.status))
		})
	}
}

func TestStatusLine(t *testing.T) {
	st := upload.State{Status: upload.Success, Message: upload.MsgSuccess, FileName: "report.pdf", CanSubmit: true}

	plain := StatusLine(st, true)
	assert.Contains(t, plain, "report.pdf: "+upload.MsgSuccess)
	assert.NotContains(t, plain, "\033[")
	assert.NotContains(t, plain, "disabled")

	colored := StatusLine(st, false)
	assert.True(t, strings.HasPrefix(colored, "\033[32m"))
	assert.True(t, strings.HasSuffix(colored, reset))
}

func TestStatusLineWithoutFile(t *testing.T) {
	st := upload.State{Status: upload.Error, Message: upload.MsgSelectFile}

	line := StatusLine(st, true)
	assert.Contains(t, line, "(no file)")
	assert.Contains(t, line, upload.MsgSelectFile)
	assert.Contains(t, line, "[submit disabled]")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Print(upload.State{Status: upload.Uploading, Message: upload.MsgUploading, FileName: "a", CanSubmit: true})
	p.Print(upload.State{Status: upload.Error, Message: upload.MsgFailure, FileName: "a", CanSubmit: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], upload.MsgUploading)
	assert.Contains(t, lines[1], upload.MsgFailure)
}
