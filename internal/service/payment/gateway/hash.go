// Package gateway 实现与外部支付网关（JazzCash 风格）之间的字段约定和完整性校验。
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// FieldSecureHash 是携带完整性哈希的字段，本身不参与计算
const FieldSecureHash = "pp_SecureHash"

// Fields 是提交给网关或从网关回调收到的表单字段
type Fields map[string]string

// hashable 返回参与哈希计算的字段名：以 pp 开头（不区分大小写）、值非空、且不是 pp_SecureHash。
func (f Fields) hashable() []string {
	names := make([]string, 0, len(f))
	for name, value := range f {
		if len(name) < 2 || !strings.EqualFold(name[:2], "pp") {
			continue
		}
		if value == "" || strings.EqualFold(name, FieldSecureHash) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashInput 返回 "<salt>&v1&v2&..."，值按字段名的 ASCII 顺序排列。
func HashInput(salt string, f Fields) string {
	names := f.hashable()
	var b strings.Builder
	b.WriteString(salt)
	for _, name := range names {
		b.WriteByte('&')
		b.WriteString(f[name])
	}
	return b.String()
}

// latin1 把字符串编码为 ISO-8859-1，无法表示的字符替换为 '?'
func latin1(s string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	out, err := enc.String(s)
	if err != nil {
		// ReplaceUnsupported 之后不会再出错，保底返回原始字节
		return []byte(s)
	}
	return []byte(out)
}

// SecureHash 计算 HMAC-SHA256(salt, latin1(HashInput))，输出大写十六进制。
func SecureHash(salt string, f Fields) string {
	mac := hmac.New(sha256.New, latin1(salt))
	mac.Write(latin1(HashInput(salt, f)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Verify 重新计算哈希并与收到的 pp_SecureHash 做常量时间比较。
func Verify(salt string, f Fields) bool {
	received := strings.ToUpper(strings.TrimSpace(f[FieldSecureHash]))
	if received == "" {
		return false
	}
	return hmac.Equal([]byte(SecureHash(salt, f)), []byte(received))
}
