package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// TrackingIDPattern 是对外展示的订单号格式。
var TrackingIDPattern = regexp.MustCompile(`^TRK-[0-9A-F]{8}$`)

// NewTrackingID 取随机 UUID 的前 8 个十六进制字符生成订单号。
// 唯一性由数据库唯一索引保证，冲突时由调用方重新生成。
func NewTrackingID() string {
	id := uuid.New()
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}
