// Package decoder converts raw Modbus register values into physical
// measurements using a per-sensor decoding configuration.
package decoder

import (
	"math"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// 支持的寄存器值编码
const (
	EncodingSigned16   = "signed16"
	EncodingUnsigned16 = "unsigned16"
	EncodingSigned32   = "signed32"
	EncodingUnsigned32 = "unsigned32"
	EncodingFloat32    = "float32"
)

// 支持的寄存器类型
const (
	KindHolding  = "holding"
	KindInput    = "input"
	KindCoil     = "coil"
	KindDiscrete = "discrete"
)

// ValidEncoding reports whether enc names a supported value encoding.
func ValidEncoding(enc string) bool {
	switch enc {
	case EncodingSigned16, EncodingUnsigned16, EncodingSigned32, EncodingUnsigned32, EncodingFloat32:
		return true
	}
	return false
}

// ValidRegisterKind reports whether kind names a supported register kind.
func ValidRegisterKind(kind string) bool {
	switch kind {
	case KindHolding, KindInput, KindCoil, KindDiscrete:
		return true
	}
	return false
}

// RawBits 校验上报的原始寄存器值并转成位模式
// 上报侧以 JSON number 携带位模式，必须是落在 encoding 位宽内的非负整数
// 越界或非整数的 float64 到 uint32 的转换结果未定义，这里统一拒绝
func RawBits(v float64, encoding string) (uint32, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) {
		return 0, false
	}
	max := float64(math.MaxUint32)
	switch encoding {
	case EncodingSigned16, EncodingUnsigned16:
		max = float64(math.MaxUint16)
	}
	if v > max {
		return 0, false
	}
	return uint32(v), true
}

// Decode 将原始寄存器值转换为物理量
// physical = reinterpret(raw) * scale + offset
// raw 是 16 位或 32 位寄存器位模式（由 encoding 决定宽度）
// 纯函数，无副作用，可并发调用
func Decode(raw uint32, encoding string, scale, offset float64) (float64, error) {
	var v float64
	switch encoding {
	case EncodingUnsigned16:
		v = float64(uint16(raw))
	case EncodingSigned16:
		// 两补码重解释
		v = float64(int16(uint16(raw)))
	case EncodingUnsigned32:
		v = float64(raw)
	case EncodingSigned32:
		v = float64(int32(raw))
	case EncodingFloat32:
		v = float64(math.Float32frombits(raw))
	default:
		return 0, &domain.ConfigurationError{Field: "encoding", Reason: "unknown encoding " + encoding}
	}
	return v*scale + offset, nil
}
