package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ByteLength 随机字节数，编码后为 64 位十六进制字符串
const ByteLength = 32

// Generator 生成 token 的函数，测试中可替换为固定值
type Generator func() (string, error)

// Generate 生成一个一次性使用的随机 token
// 唯一性由数据库唯一索引保证
func Generate() (string, error) {
	b := make([]byte, ByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
