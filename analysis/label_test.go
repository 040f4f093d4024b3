package analysis

import (
	"testing"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// 四级解析从富到简逐级回退
func TestParseBeamLabel(t *testing.T) {
	tests := []struct {
		text   string
		ok     bool
		code   string
		span   string
		width  float64
		height float64
	}{
		{"KL1(2) 250x500", true, "KL1", "2", 250, 500},
		{"KL1（2）250×500", true, "KL1", "2", 250, 500},
		{"KL2(3A)", true, "KL2", "3A", 0, 0},
		{"L3 200×400", true, "L3", "", 200, 400},
		{"300x600", true, "", "", 300, 600},
		{"WKL5(1) 300x700 配筋见详图", true, "WKL5", "1", 300, 700},
		{"说明文字", false, "", "", 0, 0},
	}

	for _, tt := range tests {
		info, ok := ParseBeamLabel(tt.text)
		if ok != tt.ok {
			t.Errorf("%s 识别结果不符: 期望 %v, 得到 %v", tt.text, tt.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if info.Code != tt.code || info.Span != tt.span {
			t.Errorf("%s 编号不符: 期望 %s(%s), 得到 %s(%s)",
				tt.text, tt.code, tt.span, info.Code, info.Span)
		}
		if info.Width != tt.width || info.Height != tt.height {
			t.Errorf("%s 截面不符: 期望 %vx%v, 得到 %vx%v",
				tt.text, tt.width, tt.height, info.Width, info.Height)
		}
	}
}

// 走向判定优先级：图层命名提示 > 引线走向 > 文字旋转角
func TestClassifyOrientation(t *testing.T) {
	vertical := testLine("LEAD", 0, 0, 10, 500)
	horizontal := testLine("LEAD", 0, 0, 500, 10)

	tests := []struct {
		name     string
		layer    string
		leader   *entities.Line
		rotation float64
		expect   Orientation
	}{
		{"图层提示压过引线与旋转", "BEAM_TEXT_H", vertical, 90, OrientationHorizontal},
		{"图层纵向提示", "Y向梁标注", nil, 0, OrientationVertical},
		{"引线压过旋转", "PLAIN", vertical, 0, OrientationVertical},
		{"引线横向", "PLAIN", horizontal, 90, OrientationHorizontal},
		{"旋转角兜底纵向", "PLAIN", nil, 90, OrientationVertical},
		{"旋转角兜底横向", "PLAIN", nil, 0, OrientationHorizontal},
		{"大角度取模", "PLAIN", nil, 270, OrientationVertical},
	}

	for _, tt := range tests {
		got := ClassifyOrientation(tt.layer, tt.leader, tt.rotation)
		if got != tt.expect {
			t.Errorf("%s: 期望 %v, 得到 %v", tt.name, tt.expect, got)
		}
	}
}

// 缺尺寸的标注由同编号补齐，补不上的置人工确认
func TestBackfillLabels(t *testing.T) {
	labels := BackfillLabels([]BeamLabelInfo{
		{Code: "KL1", Width: 250, Height: 500},
		{Code: "KL1"},
		{Code: "KL9"},
	})

	if labels[1].Width != 250 || labels[1].Height != 500 {
		t.Errorf("补齐失败: 得到 %vx%v", labels[1].Width, labels[1].Height)
	}
	if labels[1].NeedConfirm {
		t.Errorf("补齐后不应要求人工确认")
	}
	if !labels[2].NeedConfirm {
		t.Errorf("无来源可补的标注应要求人工确认")
	}
}

// 截面宽提示去重
func TestParseSizeHints(t *testing.T) {
	newText := func(value string) *entities.Text {
		return &entities.Text{
			BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: "BM_TEXT"},
			Location:   core.Point{},
			Value:      value,
		}
	}

	hints := ParseSizeHints([]*entities.Text{
		newText("KL1(2) 300x500"),
		newText("KL2(1) 300x600"),
		newText("L1 250x400"),
		newText("纯说明文字"),
	})

	if len(hints) != 2 {
		t.Fatalf("提示宽度数不符: 期望 2, 得到 %d (%v)", len(hints), hints)
	}
	if hints[0] != 300 || hints[1] != 250 {
		t.Errorf("提示宽度不符: 期望 [300 250], 得到 %v", hints)
	}
}
