package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// 两套平移复制的轴网，指纹锚点差即配准向量
func testDuplicateGrids() ([]*entities.Line, []ViewportRegion) {
	var lines []*entities.Line

	grid := func(dx, dy float64) {
		lines = append(lines,
			testLine("AXIS", dx-100, dy, dx+6100, dy),
			testLine("AXIS", dx-100, dy+6000, dx+6100, dy+6000),
			testLine("AXIS", dx, dy-100, dx, dy+6100),
			testLine("AXIS", dx+6000, dy-100, dx+6000, dy+6100),
		)
	}
	grid(0, 0)
	grid(5000, 3000)

	regions := []ViewportRegion{
		{
			Bounds: core.BBox{Min: core.Point{X: -100, Y: -100}, Max: core.Point{X: 6100, Y: 6100}},
			Title:  "梁配筋-1",
			Parsed: &ViewTitle{Prefix: "梁配筋", Index: 1},
		},
		{
			Bounds: core.BBox{Min: core.Point{X: 4900, Y: 2900}, Max: core.Point{X: 11100, Y: 9100}},
			Title:  "梁配筋-2",
			Parsed: &ViewTitle{Prefix: "梁配筋", Index: 2},
		},
	}
	return lines, regions
}

// 标题前缀相同的区域归组，组内按编号升序
func TestGroupRegions(t *testing.T) {
	regions := []ViewportRegion{
		{Title: "梁配筋-2", Parsed: &ViewTitle{Prefix: "梁配筋", Index: 2}},
		{Title: "板配筋-1", Parsed: &ViewTitle{Prefix: "板配筋", Index: 1}},
		{Title: "梁配筋-1", Parsed: &ViewTitle{Prefix: "梁配筋", Index: 1}},
		{Title: "BLOCK 4"},
	}

	groups := GroupRegions(regions)
	if len(groups) != 1 {
		t.Fatalf("重复组数不符: 期望 1, 得到 %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Fatalf("组成员数不符: 期望 2, 得到 %d", len(groups[0]))
	}
	if groups[0][0].Parsed.Index != 1 || groups[0][1].Parsed.Index != 2 {
		t.Errorf("组内排序不符: 得到 %s, %s", groups[0][0].Title, groups[0][1].Title)
	}
}

// 平移 (5000,3000) 复制的轴网，配准向量应正好是 (5000,3000)
func TestMergeVector(t *testing.T) {
	lines, regions := testDuplicateGrids()

	base := Fingerprint(lines, regions[0].Bounds)
	secondary := Fingerprint(lines, regions[1].Bounds)
	if len(base) == 0 || len(secondary) == 0 {
		t.Fatalf("指纹为空: 基准 %d, 重复 %d", len(base), len(secondary))
	}

	vector, ok := MergeVector(base, secondary)
	if !ok {
		t.Fatal("配准向量求解失败")
	}
	if math.Abs(vector.X-5000) > 1e-6 || math.Abs(vector.Y-3000) > 1e-6 {
		t.Errorf("配准向量不符: 期望 (5000,3000), 得到 (%v,%v)", vector.X, vector.Y)
	}

	if _, ok := MergeVector(nil, secondary); ok {
		t.Error("空指纹不应求出向量")
	}
}

// 重复区的标注平移回基准区坐标，并解析出结构化梁标注
func TestMergeDuplicateViews(t *testing.T) {
	lines, regions := testDuplicateGrids()

	label := &entities.Text{
		BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: "BM_TEXT_H"},
		Location:   core.Point{X: 5100, Y: 3050},
		Value:      "KL1(2) 300x500",
	}

	views, err := MergeDuplicateViews(MergeInput{
		Regions:     regions,
		AxisLines:   lines,
		Annotations: []entities.Entity{label},
	})
	if err != nil {
		t.Fatalf("合并失败: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("合并视图数不符: 期望 1, 得到 %d", len(views))
	}

	view := views[0]
	if view.BaseTitle != "梁配筋-1" {
		t.Errorf("基准区不符: 得到 %s", view.BaseTitle)
	}
	if len(view.Entities) != 1 || len(view.Labels) != 1 {
		t.Fatalf("搬运结果不符: 实体 %d, 标注 %d", len(view.Entities), len(view.Labels))
	}

	moved, ok := view.Entities[0].(*entities.Text)
	if !ok {
		t.Fatalf("搬运实体类型不符: %T", view.Entities[0])
	}
	// (5100,3050) 减去向量 (5000,3000)
	if math.Abs(moved.Location.X-100) > 1e-6 || math.Abs(moved.Location.Y-50) > 1e-6 {
		t.Errorf("搬运位置不符: 期望 (100,50), 得到 (%v,%v)", moved.Location.X, moved.Location.Y)
	}
	if moved.Layer() != LayerLabelH {
		t.Errorf("结果图层不符: 期望 %s, 得到 %s", LayerLabelH, moved.Layer())
	}

	info := view.Labels[0]
	if info.Code != "KL1" || info.Width != 300 || info.Height != 500 {
		t.Errorf("标注解析不符: 得到 %s %vx%v", info.Code, info.Width, info.Height)
	}
	if info.Orientation != OrientationHorizontal {
		t.Errorf("标注走向不符: 得到 %v", info.Orientation)
	}

	// 原实体不被修改
	if label.Location.X != 5100 || label.Layer() != "BM_TEXT_H" {
		t.Errorf("原标注被篡改: %+v", label)
	}
}

// 没有可配准的重复视口时报 ErrNoData
func TestMergeDuplicateViews_NoData(t *testing.T) {
	_, err := MergeDuplicateViews(MergeInput{
		Regions: []ViewportRegion{{Title: "BLOCK 1"}},
	})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("期望 ErrNoData, 得到 %v", err)
	}
}

// 同前缀的重复组里没有轴网交点可配准时同样报 ErrNoData，
// 而不是产出一个空的合并结果
func TestMergeDuplicateViews_NoFingerprint(t *testing.T) {
	regions := []ViewportRegion{
		{
			Bounds: core.BBox{Max: core.Point{X: 6000, Y: 6000}},
			Title:  "梁配筋-1",
			Parsed: &ViewTitle{Prefix: "梁配筋", Index: 1},
		},
		{
			Bounds: core.BBox{Min: core.Point{X: 20000}, Max: core.Point{X: 26000, Y: 6000}},
			Title:  "梁配筋-2",
			Parsed: &ViewTitle{Prefix: "梁配筋", Index: 2},
		},
	}

	views, err := MergeDuplicateViews(MergeInput{Regions: regions})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("期望 ErrNoData, 得到 %v", err)
	}
	if len(views) != 0 {
		t.Errorf("不应产出空的合并结果: 得到 %d 个", len(views))
	}
}

// 轴线坐标带亚毫米噪声时指纹取整，配准向量不受影响
func TestFingerprint_Rounding(t *testing.T) {
	lines := []*entities.Line{
		// 基准区十字
		testLine("AXIS", -100, 0, 100, 0),
		testLine("AXIS", 0, -100, 0, 100),
		// 重复区十字，描图带 0.4 的偏差
		testLine("AXIS", 4900, 3000.4, 5100, 3000.4),
		testLine("AXIS", 5000.4, 2900, 5000.4, 3100),
	}

	var (
		baseBounds = core.BBox{Min: core.Point{X: -200, Y: -200}, Max: core.Point{X: 200, Y: 200}}
		secBounds  = core.BBox{Min: core.Point{X: 4800, Y: 2800}, Max: core.Point{X: 5200, Y: 3200}}
	)

	base := Fingerprint(lines, baseBounds)
	secondary := Fingerprint(lines, secBounds)
	if len(base) != 1 || len(secondary) != 1 {
		t.Fatalf("指纹点数不符: 基准 %d, 重复 %d", len(base), len(secondary))
	}
	if secondary[0].X != 5000 || secondary[0].Y != 3000 {
		t.Errorf("指纹坐标未取整: 得到 (%v,%v)", secondary[0].X, secondary[0].Y)
	}

	vector, ok := MergeVector(base, secondary)
	if !ok {
		t.Fatal("配准向量求解失败")
	}
	if vector.X != 5000 || vector.Y != 3000 {
		t.Errorf("配准向量不符: 期望 (5000,3000), 得到 (%v,%v)", vector.X, vector.Y)
	}
}
