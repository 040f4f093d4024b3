package analysis

import (
	"math"
	"testing"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// 垂距 300 的双轨线命中标准宽度，合成一根矩形构件
func TestSynthesize_WidthAccepted(t *testing.T) {
	rects := Synthesize(SynthesisInput{
		Lines: []*entities.Line{
			testLine("BEAM", 0, 0, 6000, 0),
			testLine("BEAM", 0, 300, 6000, 300),
		},
		Tolerance:   1200,
		Mode:        ModeBeam,
		ResultLayer: "RESULT",
	})

	if len(rects) != 1 {
		t.Fatalf("合成数不符: 期望 1, 得到 %d", len(rects))
	}

	rect := rects[0]
	if math.Abs(rect.Width-300) > 1e-6 {
		t.Errorf("宽度不符: 期望 300, 得到 %v", rect.Width)
	}
	if math.Abs(rect.Length()-6000) > 1e-6 {
		t.Errorf("长度不符: 期望 6000, 得到 %v", rect.Length())
	}
	// 中轴线位于双轨正中
	if math.Abs(rect.Start.Y-150) > 1e-6 || math.Abs(rect.End.Y-150) > 1e-6 {
		t.Errorf("中轴线位置不符: 期望 y=150, 得到 %v/%v", rect.Start.Y, rect.End.Y)
	}
	if rect.Layer != "RESULT" {
		t.Errorf("结果图层不符: 期望 RESULT, 得到 %s", rect.Layer)
	}
}

// 垂距 280 不在任何标准宽度的 ±5 容差内，不产出构件
func TestSynthesize_WidthRejected(t *testing.T) {
	rects := Synthesize(SynthesisInput{
		Lines: []*entities.Line{
			testLine("BEAM", 0, 0, 6000, 0),
			testLine("BEAM", 0, 280, 6000, 280),
		},
		Tolerance:   1200,
		Mode:        ModeBeam,
		ResultLayer: "RESULT",
	})

	if len(rects) != 0 {
		t.Errorf("宽度 280 不应合成: 得到 %d 根", len(rects))
	}
}

// 提示宽度 300 时，垂距 304 落在 ±5 容差内
func TestSynthesize_WidthTolerance(t *testing.T) {
	rects := Synthesize(SynthesisInput{
		Lines: []*entities.Line{
			testLine("BEAM", 0, 0, 6000, 0),
			testLine("BEAM", 0, 304, 6000, 304),
		},
		Tolerance:   1200,
		ValidWidths: []float64{300},
		Mode:        ModeBeam,
		ResultLayer: "RESULT",
	})

	if len(rects) != 1 {
		t.Fatalf("合成数不符: 期望 1, 得到 %d", len(rects))
	}
	if math.Abs(rects[0].Width-304) > 1e-6 {
		t.Errorf("宽度不符: 期望 304, 得到 %v", rects[0].Width)
	}
}

// 同宽共线且端部相接的碎段拼回整根构件
func TestCollinearMerge(t *testing.T) {
	rects := CollinearMerge([]Rectangle{
		{Start: core.Point{X: 0, Y: 0}, End: core.Point{X: 3000, Y: 0}, Width: 300},
		{Start: core.Point{X: 3020, Y: 0}, End: core.Point{X: 6000, Y: 0}, Width: 300},
		// 不同宽度不参与合并
		{Start: core.Point{X: 6020, Y: 0}, End: core.Point{X: 9000, Y: 0}, Width: 200},
	})

	if len(rects) != 2 {
		t.Fatalf("合并结果数不符: 期望 2, 得到 %d", len(rects))
	}
	if math.Abs(rects[0].Length()-6000) > 1e-6 {
		t.Errorf("合并后长度不符: 期望 6000, 得到 %v", rects[0].Length())
	}
}

// 端部间隙超过容差的共线段不合并
func TestCollinearMerge_Gap(t *testing.T) {
	rects := CollinearMerge([]Rectangle{
		{Start: core.Point{X: 0, Y: 0}, End: core.Point{X: 3000, Y: 0}, Width: 300},
		{Start: core.Point{X: 3200, Y: 0}, End: core.Point{X: 6000, Y: 0}, Width: 300},
	})

	if len(rects) != 2 {
		t.Errorf("间隙 200 不应合并: 得到 %d 根", len(rects))
	}
}

// 按垂距频率推测墙厚，只保留高频且接近标准厚度的桶
func TestEstimateWallWidths(t *testing.T) {
	var lines []*entities.Line
	// 三对厚 240 的双轨线，组间距离远超搜索范围
	for _, y := range []float64{0, 10000, 20000} {
		lines = append(lines,
			testLine("WALL", 0, y, 5000, y),
			testLine("WALL", 0, y+240, 5000, y+240),
		)
	}

	widths := EstimateWallWidths(lines)
	if len(widths) != 1 {
		t.Fatalf("推测墙厚数不符: 期望 1, 得到 %d (%v)", len(widths), widths)
	}
	if widths[0] != 240 {
		t.Errorf("墙厚不符: 期望 240, 得到 %v", widths[0])
	}
}
