package broadcast

import (
	"errors"
	"sync"
	"testing"
)

type memSink struct {
	mu   sync.Mutex
	got  []Message
	fail bool
}

func (s *memSink) Send(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("gone")
	}
	s.got = append(s.got, m)
	return nil
}

func (s *memSink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.got))
	copy(out, s.got)
	return out
}

// TestEncodeWire timeupdate 携带 time 字段，play/pause 不携带
func TestEncodeWire(t *testing.T) {
	b, err := Timeupdate(3.5).Encode()
	if err != nil || string(b) != `{"type":"timeupdate","time":3.5}` {
		t.Fatalf("timeupdate wire: %s err=%v", b, err)
	}
	b, err = Play().Encode()
	if err != nil || string(b) != `{"type":"play"}` {
		t.Fatalf("play wire: %s err=%v", b, err)
	}
	b, err = Pause().Encode()
	if err != nil || string(b) != `{"type":"pause"}` {
		t.Fatalf("pause wire: %s err=%v", b, err)
	}
}

// TestDecodeRoundTrip 解析回原始结构
func TestDecodeRoundTrip(t *testing.T) {
	m, err := Decode([]byte(`{"type":"timeupdate","time":12.25}`))
	if err != nil || m.Type != TypeTimeupdate || m.Time == nil || *m.Time != 12.25 {
		t.Fatalf("decode: %+v err=%v", m, err)
	}
	m, err = Decode([]byte(`{"type":"pause"}`))
	if err != nil || m.Type != TypePause || m.Time != nil {
		t.Fatalf("decode pause: %+v err=%v", m, err)
	}
}

// TestFanout 全部挂载端都收到每条消息
func TestFanout(t *testing.T) {
	b := New(nil)
	s1, s2 := &memSink{}, &memSink{}
	b.Attach("a", s1)
	b.Attach("b", s2)
	b.Play()
	b.Timeupdate(1.0)
	b.Pause()
	for _, s := range []*memSink{s1, s2} {
		got := s.messages()
		// 2 条回放 + 3 条广播
		if len(got) != 5 || got[2].Type != TypePlay || got[3].Type != TypeTimeupdate || got[4].Type != TypePause {
			t.Fatalf("unexpected stream %+v", got)
		}
	}
}

// TestAttachReplay 后到端立即收到完整状态：timeupdate + 播放态
func TestAttachReplay(t *testing.T) {
	b := New(nil)
	b.Play()
	b.Timeupdate(7.5)

	late := &memSink{}
	b.Attach("late", late)
	got := late.messages()
	if len(got) != 2 {
		t.Fatalf("expect 2 replay messages, got %+v", got)
	}
	if got[0].Type != TypeTimeupdate || *got[0].Time != 7.5 {
		t.Fatalf("replay time mismatch: %+v", got[0])
	}
	if got[1].Type != TypePlay {
		t.Fatalf("replay must carry playing state: %+v", got[1])
	}

	b.Pause()
	late2 := &memSink{}
	b.Attach("late2", late2)
	if got := late2.messages(); got[1].Type != TypePause {
		t.Fatalf("replay after pause must carry pause: %+v", got)
	}
}

// TestFailedSinkDropped 失败端被摘除且不影响其余端
func TestFailedSinkDropped(t *testing.T) {
	b := New(nil)
	bad, good := &memSink{fail: true}, &memSink{}
	b.Attach("good", good)
	b.sinks["bad"] = bad // 绕过 Attach 回放以构造挂载后才失效的端
	b.Timeupdate(2.0)
	if _, ok := b.sinks["bad"]; ok {
		t.Fatalf("failed sink must be dropped")
	}
	if got := good.messages(); got[len(got)-1].Type != TypeTimeupdate {
		t.Fatalf("healthy sink must keep receiving: %+v", got)
	}
}

// TestDetach 摘除后不再投递
func TestDetach(t *testing.T) {
	b := New(nil)
	s := &memSink{}
	b.Attach("x", s)
	b.Detach("x")
	b.Timeupdate(9.0)
	if got := s.messages(); len(got) != 2 {
		t.Fatalf("detached sink must not receive broadcasts: %+v", got)
	}
}
