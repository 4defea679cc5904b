package storage

import "errors"

// IsNotFound 判断错误是否表示文件不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidPath 判断错误是否由非法路径引起
func IsInvalidPath(err error) bool {
	return errors.Is(err, ErrInvalidPath)
}
