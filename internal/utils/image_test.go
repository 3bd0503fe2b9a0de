package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// 最小的文件头，足以让 mimetype 识别
var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	tiffHeader = []byte{'I', 'I', '*', 0, 0x08, 0, 0, 0, 0, 0, 0, 0}
	heicHeader = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0, 'm', 'i', 'f', '1', 'h', 'e', 'i', 'c'}
)

func TestInspectImage(t *testing.T) {
	tmpDir := t.TempDir()
	pngPath := filepath.Join(tmpDir, "report.png")
	if err := os.WriteFile(pngPath, pngHeader, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	img, err := InspectImage(pngPath, 0)
	if err != nil {
		t.Fatalf("InspectImage failed: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", img.ContentType)
	}
	if img.Name != "report.png" {
		t.Errorf("Name = %q, want report.png", img.Name)
	}
	if img.Size != int64(len(pngHeader)) {
		t.Errorf("Size = %d, want %d", img.Size, len(pngHeader))
	}
}

func TestInspectImageScannerAndPhoneFormats(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"scan.tiff", tiffHeader, "image/tiff"},
		{"photo.heic", heicHeader, "image/heic"},
	}
	for _, tt := range tests {
		path := filepath.Join(tmpDir, tt.name)
		if err := os.WriteFile(path, tt.data, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		img, err := InspectImage(path, 0)
		if err != nil {
			t.Errorf("InspectImage(%s) failed: %v", tt.name, err)
			continue
		}
		if img.ContentType != tt.want {
			t.Errorf("InspectImage(%s).ContentType = %q, want %q", tt.name, img.ContentType, tt.want)
		}
	}
}

func TestInspectImageRejects(t *testing.T) {
	tmpDir := t.TempDir()
	textPath := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(textPath, []byte("Hemoglobin 14 g/dl"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	pngPath := filepath.Join(tmpDir, "big.png")
	if err := os.WriteFile(pngPath, pngHeader, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := InspectImage(textPath, 0); !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
	if _, err := InspectImage(pngPath, 4); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
	if _, err := InspectImage(tmpDir, 0); err == nil {
		t.Error("Expected error for directory")
	}
	if _, err := InspectImage(filepath.Join(tmpDir, "missing.png"), 0); err == nil {
		t.Error("Expected error for non-existent file")
	}
	if _, err := InspectImage("   ", 0); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestGetConfigDirOverride(t *testing.T) {
	t.Setenv("MEDASSIST_CONFIG_HOME", "/tmp/medassist-test")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir failed: %v", err)
	}
	if dir != "/tmp/medassist-test" {
		t.Errorf("GetConfigDir = %q, want override", dir)
	}
}
