package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxImageSize 默认允许上传的最大图片大小
const DefaultMaxImageSize int64 = 10 * 1024 * 1024

var (
	ErrNoPath        = errors.New("no file path given")
	ErrNotImage      = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// ImageFile 是已校验过的本地报告图片
type ImageFile struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// InspectImage 校验文件存在、是普通文件、不超过大小限制并且内容是图片
func InspectImage(path string, maxSize int64) (ImageFile, error) {
	path = ExpandHome(strings.TrimSpace(path))
	if path == "" {
		return ImageFile{}, ErrNoPath
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return ImageFile{}, fmt.Errorf("cannot read file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return ImageFile{}, fmt.Errorf("%s is not a regular file", info.Name())
	}
	if info.Size() > maxSize {
		return ImageFile{}, fmt.Errorf("%w: %d > %d bytes", ErrImageTooLarge, info.Size(), maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return ImageFile{}, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	// mimetype 能识别 tiff、heic、avif 等扫描件和手机照片格式
	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return ImageFile{}, fmt.Errorf("cannot read file: %w", err)
	}
	contentType := mtype.String()
	if !strings.HasPrefix(contentType, "image/") {
		return ImageFile{}, fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}

	return ImageFile{
		Path:        path,
		Name:        info.Name(),
		Size:        info.Size(),
		ContentType: contentType,
	}, nil
}
