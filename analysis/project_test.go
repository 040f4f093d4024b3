package analysis

import (
	"testing"

	"github.com/zooyer/beamcad"
	"github.com/zooyer/beamcad/config"
	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// 闭合多段线与圆直接成柱，四条散线描边的柱按包围盒合并
func TestDetectColumns(t *testing.T) {
	doc := &beamcad.Document{Blocks: map[string]*beamcad.Block{}}
	doc.AddEntities(
		// 闭合多段线柱
		&entities.LWPolyline{
			BaseEntity: entities.BaseEntity{TypeName: "LWPOLYLINE", LayerName: "COLU"},
			Vertices: []core.Point{
				{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 500, Y: 500}, {X: 0, Y: 500},
			},
			Closed: true,
		},
		// 圆柱
		&entities.Circle{
			BaseEntity: entities.BaseEntity{TypeName: "CIRCLE", LayerName: "COLU"},
			Center:     core.Point{X: 5000, Y: 0},
			Radius:     300,
		},
		// 四条散线描边的柱
		testLine("COLU", 10000, 0, 10500, 0),
		testLine("COLU", 10500, 0, 10500, 500),
		testLine("COLU", 10500, 500, 10000, 500),
		testLine("COLU", 10000, 500, 10000, 0),
	)

	columns := DetectColumns(doc, config.Layers{config.RoleColumn: {"COLU"}})
	if len(columns) != 3 {
		t.Fatalf("柱数不符: 期望 3, 得到 %d", len(columns))
	}

	if len(columns[0].Vertices) != 4 {
		t.Errorf("多段线柱顶点数不符: 得到 %d", len(columns[0].Vertices))
	}
	if columns[1].Radius != 300 {
		t.Errorf("圆柱半径不符: 得到 %v", columns[1].Radius)
	}

	merged := columns[2]
	if merged.Bounds.Min.X != 10000 || merged.Bounds.Max.X != 10500 {
		t.Errorf("散线柱范围不符: 得到 %+v", merged.Bounds)
	}
}

// 墙厚由垂距频率推测，双轨线合成墙段
func TestDetectWalls(t *testing.T) {
	doc := &beamcad.Document{Blocks: map[string]*beamcad.Block{}}
	// 三段厚 240 的墙，保证频率桶计数过门槛
	for _, y := range []float64{0, 10000, 20000} {
		doc.AddEntities(
			testLine("WALL", 0, y, 5000, y),
			testLine("WALL", 0, y+240, 5000, y+240),
		)
	}

	walls := DetectWalls(doc, config.Layers{config.RoleWall: {"WALL"}})
	if len(walls) != 3 {
		t.Fatalf("墙段数不符: 期望 3, 得到 %d", len(walls))
	}
	for _, wall := range walls {
		if wall.Thickness != 240 {
			t.Errorf("墙厚不符: 期望 240, 得到 %v", wall.Thickness)
		}
	}
}

// 柱与墙充当梁端吸附障碍：梁端应顶到柱面而不是停在画线端头
func TestStageRawBeams_SnapToColumn(t *testing.T) {
	doc := &beamcad.Document{Blocks: map[string]*beamcad.Block{}}
	doc.AddEntities(
		// 双轨线画短了 200，吸附后应顶到柱面 x=6000
		testLine("BEAM", 500, 150, 5800, 150),
		testLine("BEAM", 500, -150, 5800, -150),

		testLine("AXIS", 0, -3000, 0, 3000),

		// 两根 500x500 的柱，内侧面分别在 x=500 与 x=6000
		&entities.LWPolyline{
			BaseEntity: entities.BaseEntity{TypeName: "LWPOLYLINE", LayerName: "COLU"},
			Vertices: []core.Point{
				{X: 0, Y: -250}, {X: 500, Y: -250}, {X: 500, Y: 250}, {X: 0, Y: 250},
			},
			Closed: true,
		},
		&entities.LWPolyline{
			BaseEntity: entities.BaseEntity{TypeName: "LWPOLYLINE", LayerName: "COLU"},
			Vertices: []core.Point{
				{X: 6000, Y: -250}, {X: 6500, Y: -250}, {X: 6500, Y: 250}, {X: 6000, Y: 250},
			},
			Closed: true,
		},
	)
	layers := config.Layers{
		config.RoleAxis:   {"AXIS"},
		config.RoleBeam:   {"BEAM"},
		config.RoleColumn: {"COLU"},
	}

	p := NewProject("吸附", doc, layers)
	raw, err := StageRawBeams(p)
	if err != nil {
		t.Fatalf("原始生成失败: %v", err)
	}
	p.Apply(raw)

	if len(p.RawBeams) != 1 {
		t.Fatalf("原始梁数不符: 期望 1, 得到 %d", len(p.RawBeams))
	}

	rect := p.RawBeams[0]
	lo, hi := rect.Start.X, rect.End.X
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo != 500 || hi != 6000 {
		t.Errorf("梁端吸附不符: 期望 [500,6000], 得到 [%v,%v]", lo, hi)
	}
}
