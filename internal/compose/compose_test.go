package compose

import (
	"reflect"
	"testing"

	"reelsync/pkg/contract"
)

func fixture() ([]contract.Cue, []contract.LayoutStep) {
	cues := []contract.Cue{
		{ID: 1, StartTime: 0.5, EndTime: 2.0, Text: "hello there friend"},
		{ID: 2, StartTime: 2.5, EndTime: 4.0, Text: "second cue text"},
		{ID: 3, StartTime: 5.0, EndTime: 7.0, Text: "the very last one"},
	}
	steps := []contract.LayoutStep{
		{StartTime: 0, EndTime: 8, LayoutMode: contract.LayoutSplit},
	}
	return cues, steps
}

// TestDerivePure 相同输入两次派生输出完全一致
func TestDerivePure(t *testing.T) {
	cues, steps := fixture()
	for _, tt := range []float64{0, 0.7, 2.2, 3.0, 6.5, 9.0} {
		a := Derive(tt, cues, steps, Options{})
		b := Derive(tt, cues, steps, Options{})
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("t=%v: derive not pure", tt)
		}
	}
}

// TestDeriveEndToEnd 3 条字幕 + 单布局步：界内恰一条活动字幕，间隙无
func TestDeriveEndToEnd(t *testing.T) {
	cues, steps := fixture()
	within := map[float64]int{0.6: 1, 1.9: 1, 2.6: 2, 3.9: 2, 5.0: 3, 6.9: 3}
	for tt, want := range within {
		st := Derive(tt, cues, steps, Options{})
		if !st.HasCue || st.Caption.CueID != want {
			t.Fatalf("t=%v: expect cue %d, got %+v", tt, want, st.Caption)
		}
	}
	for _, tt := range []float64{0.0, 2.2, 4.5} {
		if st := Derive(tt, cues, steps, Options{}); st.HasCue {
			t.Fatalf("t=%v: expect no active cue, got %d", tt, st.Caption.CueID)
		}
	}
}

// TestDeriveStickyCaptionPastEnd 越过末条后粘滞保持（整窗 spoken）
func TestDeriveStickyCaptionPastEnd(t *testing.T) {
	cues, steps := fixture()
	st := Derive(7.5, cues, steps, Options{})
	if !st.HasCue || st.Caption.CueID != 3 {
		t.Fatalf("expect sticky last cue, got %+v", st.Caption)
	}
	for _, w := range st.Caption.Words {
		if w.State != contract.WordSpoken {
			t.Fatalf("held cue must be fully spoken: %+v", st.Caption.Words)
		}
	}
}

// TestDeriveLayoutAlwaysPresent 布局在任何时刻都有具体几何
func TestDeriveLayoutAlwaysPresent(t *testing.T) {
	cues, steps := fixture()
	st := Derive(100.0, cues, steps, Options{})
	if st.Layout.OverlayHeightPct+st.Layout.MediaHeightPct == 0 {
		t.Fatalf("layout geometry missing: %+v", st.Layout)
	}
}
