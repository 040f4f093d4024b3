package analysis

import (
	"math"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// direction 线段的单位方向向量，零长线段返回 false
func direction(l *entities.Line) (core.Point, bool) {
	v := l.End.Sub(l.Start)
	length := v.Length()
	if length < 1e-9 {
		return core.Point{}, false
	}
	return v.Scale(1 / length), true
}

// perpDistance 点到过 origin、方向为 dir（单位向量）的无限直线的垂直距离
func perpDistance(p, origin, dir core.Point) float64 {
	v := p.Sub(origin)
	return math.Abs(v.X*dir.Y - v.Y*dir.X)
}

// projectParam 点在以 origin 为原点、dir 为方向的轴上的投影参数
func projectParam(p, origin, dir core.Point) float64 {
	return p.Sub(origin).Dot(dir)
}

// segmentIntersection 两线段交点（含端点），平行或不相交返回 false
func segmentIntersection(a1, a2, b1, b2 core.Point) (core.Point, bool) {
	var (
		da = a2.Sub(a1)
		db = b2.Sub(b1)
	)

	denom := da.X*db.Y - da.Y*db.X
	if math.Abs(denom) < 1e-9 {
		return core.Point{}, false
	}

	w := b1.Sub(a1)
	t := (w.X*db.Y - w.Y*db.X) / denom
	u := (w.X*da.Y - w.Y*da.X) / denom

	const eps = 1e-6
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return core.Point{}, false
	}

	return a1.Add(da.Scale(t)), true
}

// rayBBoxEntry 射线 p + t*dir 进入包围盒的参数 t（slab 法）
// 搜索范围限定在 [-limit, limit]，未命中返回 false
func rayBBoxEntry(p, dir core.Point, box core.BBox, limit float64) (float64, bool) {
	var (
		tMin = -limit
		tMax = limit
	)

	for axis := 0; axis < 2; axis++ {
		var d, o, lo, hi float64
		if axis == 0 {
			d, o, lo, hi = dir.X, p.X, box.Min.X, box.Max.X
		} else {
			d, o, lo, hi = dir.Y, p.Y, box.Min.Y, box.Max.Y
		}

		if math.Abs(d) < 1e-9 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
	}

	if tMin > tMax {
		return 0, false
	}
	return tMin, true
}

// linesOf 过滤出线段实体
func linesOf(ents []entities.Entity) []*entities.Line {
	var lines []*entities.Line
	for _, ent := range ents {
		if l, ok := ent.(*entities.Line); ok {
			lines = append(lines, l)
		}
	}
	return lines
}

// textsOf 过滤出文字实体
func textsOf(ents []entities.Entity) []*entities.Text {
	var texts []*entities.Text
	for _, ent := range ents {
		if t, ok := ent.(*entities.Text); ok {
			texts = append(texts, t)
		}
	}
	return texts
}
