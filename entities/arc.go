package entities

import (
	"github.com/zooyer/beamcad/core"
)

// Arc 只解析圆心/半径/起止角，更复杂的圆弧形态不在范围内
type Arc struct {
	BaseEntity
	Center     core.Point
	Radius     float64
	StartAngle float64 // 组码 50，角度制
	EndAngle   float64 // 组码 51，角度制
}

func init() {
	Register("ARC", func() Entity { return &Arc{BaseEntity: BaseEntity{TypeName: "ARC"}} })
}

func (a *Arc) Parse(s *core.Scanner) error {
	for {
		t := s.LastTag
		switch t.Code {
		case 8:
			a.LayerName = t.AsString()
		case 10:
			a.Center.X = t.AsFloat()
		case 20:
			a.Center.Y = t.AsFloat()
		case 40:
			a.Radius = t.AsFloat()
		case 50:
			a.StartAngle = t.AsFloat()
		case 51:
			a.EndAngle = t.AsFloat()
		}
		if !s.Next() || s.LastTag.Code == 0 {
			break
		}
	}
	return nil
}

func (a *Arc) BBox() core.BBox {
	// 简化处理：按整圆的外接矩形计算
	return core.BBox{
		Min: core.Point{X: a.Center.X - a.Radius, Y: a.Center.Y - a.Radius},
		Max: core.Point{X: a.Center.X + a.Radius, Y: a.Center.Y + a.Radius},
	}
}
