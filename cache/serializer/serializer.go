// Package serializer 提供缓存值的序列化抽象。
//
// 缓存层统一以字节存取，standalone 与 distributed 驱动共享同一套
// 序列化语义：命中路径反序列化到调用方的 dest，与回源路径的
// 序列化-反序列化往返结果一致。
package serializer

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// 序列化器类型
const (
	TypeJSON    = "json"
	TypeMsgpack = "msgpack"
)

// ErrUnsupported 不支持的序列化器类型
var ErrUnsupported = xerrors.New("serializer: unsupported type")

// Serializer 序列化接口
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// JSON 标准库 JSON 序列化器，兼容性最好，默认选择。
type JSON struct{}

func (JSON) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSON) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

// Msgpack MessagePack 二进制序列化器，体积与速度优于 JSON。
type Msgpack struct{}

func (Msgpack) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (Msgpack) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}

// New 根据类型创建序列化器，空串等价于 "json"。
func New(serializerType string) (Serializer, error) {
	switch serializerType {
	case TypeJSON, "":
		return JSON{}, nil
	case TypeMsgpack:
		return Msgpack{}, nil
	default:
		return nil, xerrors.Wrapf(ErrUnsupported, "%q", serializerType)
	}
}
