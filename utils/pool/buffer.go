package pool

import "sync"

// BufferSize 统一缓冲区大小（64KB）
const BufferSize = 64 * 1024

// SharedBufferPool 上传与媒体传输共用的缓冲区池
// 存储 *([]byte) 以避免 SA6002 警告
var SharedBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, BufferSize)
		return &buf
	},
}
