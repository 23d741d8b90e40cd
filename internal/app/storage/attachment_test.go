package storage

import (
	"testing"

	"campushub/internal/pkg/errs"
)

func TestValidateFileSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		wantCode int
	}{
		{"zero", 0, errs.ErrInvalidParams},
		{"negative", -1, errs.ErrInvalidParams},
		{"at limit", MaxAttachmentSize, 0},
		{"over limit", MaxAttachmentSize + 1, errs.ErrFileSizeTooLarge},
		{"typical", 512 * 1024, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileSize(tt.size)
			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("Expected size %d to be accepted, got code %d", tt.size, err.Code)
				}
				return
			}
			if err == nil || err.Code != tt.wantCode {
				t.Errorf("Expected code %d for size %d, got %v", tt.wantCode, tt.size, err)
			}
		})
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		wantOK   bool
	}{
		{"png", "syllabus.png", "image/png", true},
		{"pdf", "report-card.pdf", "application/pdf", true},
		{"docx", "permission-slip.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"uppercase mime", "photo.jpg", "IMAGE/JPEG", true},
		{"mime not allowed", "app.exe", "application/octet-stream", false},
		{"extension mismatch", "photo.png", "image/jpeg", false},
		{"no extension", "README", "image/png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileType(tt.fileName, tt.mimeType)
			if tt.wantOK && err != nil {
				t.Errorf("Expected %q (%s) to be accepted, got code %d", tt.fileName, tt.mimeType, err.Code)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("Expected %q (%s) to be rejected", tt.fileName, tt.mimeType)
			}
		})
	}
}
