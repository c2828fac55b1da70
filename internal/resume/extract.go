// Package resume turns resume files into plain text for the assistant and
// checks that the text is usable for analysis.
//
// Everything exported at the tool boundary returns a message instead of an
// error: the caller is a language model that can only read text.
package resume

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ObjectScheme prefixes resume locations held in object storage.
const ObjectScheme = "r2://"

// ErrUnsupportedFormat is returned by ExtractText for anything but .pdf and .docx.
var ErrUnsupportedFormat = errors.New("unsupported resume format")

// ObjectFetcher downloads a stored object. Implementations should wrap
// fs.ErrNotExist when the key is missing.
type ObjectFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Extractor reads resumes from the local file system or, for r2:// locations,
// from object storage.
type Extractor struct {
	objects ObjectFetcher
}

// NewExtractor returns an Extractor. objects may be nil, in which case only
// local paths are readable.
func NewExtractor(objects ObjectFetcher) *Extractor {
	return &Extractor{objects: objects}
}

// Extract returns the labelled text of the resume at location, or a message
// describing why it could not be read.
func (e *Extractor) Extract(ctx context.Context, location string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("resume extraction panicked", "location", location, "panic", r)
			out = fmt.Sprintf("简历文件解析失败: %v", r)
		}
	}()

	location = strings.TrimSpace(location)
	isObject := strings.HasPrefix(location, ObjectScheme)

	var ext string
	if isObject {
		ext = strings.ToLower(path.Ext(location))
	} else {
		ext = strings.ToLower(filepath.Ext(location))
	}

	data, err := e.read(ctx, location, isObject)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("错误：文件 '%s' 不存在，请检查文件路径是否正确。", location)
	}
	if !supported(ext) {
		return fmt.Sprintf("错误：不支持的文件格式 '%s'，仅支持 .docx 和 .pdf 格式。", ext)
	}
	if err != nil {
		return fmt.Sprintf("简历文件解析失败: %v", err)
	}

	text, err := ExtractText(ext, data)
	if err != nil {
		return fmt.Sprintf("简历文件解析失败: %v", err)
	}

	switch ext {
	case ".pdf":
		if strings.TrimSpace(text) == "" {
			return "警告：PDF文件中未提取到文本内容，可能是扫描版PDF，请尝试手动输入或提供可编辑的文件。"
		}
		return "简历内容（PDF）：\n\n" + text
	default:
		if strings.TrimSpace(text) == "" {
			return "警告：Word文件中未提取到文本内容，请检查文件是否为空。"
		}
		return "简历内容（Word）：\n\n" + text
	}
}

func (e *Extractor) read(ctx context.Context, location string, isObject bool) ([]byte, error) {
	if !isObject {
		if !filepath.IsAbs(location) {
			slog.Warn("resume path is not absolute", "path", location)
		}
		return os.ReadFile(location)
	}
	if e.objects == nil {
		return nil, errors.New("object storage is not configured")
	}
	key := strings.TrimPrefix(location, ObjectScheme)
	return e.objects.Fetch(ctx, key)
}

// ExtractText returns the raw text of a resume document identified by its
// file extension.
func ExtractText(ext string, data []byte) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return "", fmt.Errorf("PDF解析失败: %w", err)
		}
		return text, nil
	case ".docx":
		text, err := extractDocxText(data)
		if err != nil {
			return "", fmt.Errorf("Word文件解析失败: %w", err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func supported(ext string) bool {
	return ext == ".pdf" || ext == ".docx"
}
