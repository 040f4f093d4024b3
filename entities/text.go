package entities

import (
	"regexp"

	"github.com/zooyer/beamcad/core"
)

// Text 同时承载 TEXT 与 MTEXT（MTEXT 的段落格式码会被清洗掉）
type Text struct {
	BaseEntity
	Location core.Point
	Rotation float64 // 组码 50，角度制
	Height   float64 // 组码 40
	Value    string  // 组码 1
}

// MTEXT 的内联格式控制符，如 \fSimSun;、\H2.5x; 以及 {} 分组
var reMTextFormat = regexp.MustCompile(`\\[A-Za-z][^;\\{}]*;|[{}]|\\P`)

func init() {
	Register("TEXT", func() Entity { return &Text{BaseEntity: BaseEntity{TypeName: "TEXT"}} })
	Register("MTEXT", func() Entity { return &Text{BaseEntity: BaseEntity{TypeName: "MTEXT"}} })
}

func (t *Text) Parse(s *core.Scanner) error {
	for {
		tag := s.LastTag
		switch tag.Code {
		case 8:
			t.LayerName = tag.AsString()
		case 10:
			t.Location.X = tag.AsFloat()
		case 20:
			t.Location.Y = tag.AsFloat()
		case 40:
			t.Height = tag.AsFloat()
		case 50:
			t.Rotation = tag.AsFloat()
		case 1, 3:
			// MTEXT 超长内容会拆成多个 3 组码 + 一个 1 组码
			t.Value += tag.AsString()
		}
		if !s.Next() || s.LastTag.Code == 0 {
			break
		}
	}

	if t.TypeName == "MTEXT" {
		t.Value = reMTextFormat.ReplaceAllString(t.Value, "")
	}
	return nil
}

func (t *Text) BBox() core.BBox {
	// 简化处理：以插入点作为包围盒
	return core.BBox{Min: t.Location, Max: t.Location}
}
