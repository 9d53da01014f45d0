// Package broadcast 定义主控时钟对外的广播协议与扇出器。
// 词汇表只有三种消息：timeupdate 携带秒值，play/pause 不携带。
package broadcast

import "encoding/json"

// 消息类型常量（线上 JSON 的 type 字段取值）。
const (
	TypeTimeupdate = "timeupdate"
	TypePlay       = "play"
	TypePause      = "pause"
)

// Message 为广播线格式。Time 仅在 timeupdate 消息出现。
type Message struct {
	Type string   `json:"type"`
	Time *float64 `json:"time,omitempty"`
}

// Timeupdate 构造带秒值的时间消息。
func Timeupdate(t float64) Message {
	return Message{Type: TypeTimeupdate, Time: &t}
}

// Play 构造播放消息。
func Play() Message { return Message{Type: TypePlay} }

// Pause 构造暂停消息。
func Pause() Message { return Message{Type: TypePause} }

// Encode 序列化为线上 JSON。
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode 解析线上 JSON；未知 type 原样保留由调用方判定。
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
