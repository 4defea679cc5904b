package photo

import (
	"errors"
	"sort"
	"strings"
)

// ErrPhotoNotFound 当前没有照片
var ErrPhotoNotFound = errors.New("no photo found")

// 字段级校验提示
const (
	MsgInvalidImage     = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgFileNameTooLong  = "Ensure this field has no more than 255 characters."
	MaxOriginalNameSize = 255
)

// ValidationError 字段级校验错误，键为字段名
type ValidationError struct {
	Fields map[string][]string
}

// NewFieldError 创建单字段校验错误
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add 追加字段错误
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError 判断是否为校验错误，并返回具体错误
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
