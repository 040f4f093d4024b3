package analysis

import (
	"math"
	"sort"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
	"github.com/zooyer/golib/xmath"
)

// Mode 合成模式，影响端点吸附的优先级与默认宽度集合
type Mode int

const (
	ModeBeam Mode = iota // 梁：先吸附障碍物，再吸附轴线
	ModeWall             // 墙：先吸附轴线，再吸附障碍物
)

const (
	parallelCosine     = 0.98 // 方向余弦阈值，超过视为近平行
	widthTolerance     = 5    // 宽度与标准值的允许偏差
	minSeparation      = 10   // 小于该垂距的两条线视为重描线
	collinearOffsetTol = 5    // 共线合并允许的横向偏移
	collinearGapTol    = 50   // 共线合并允许的端部间隙
	snapRange          = 600  // 端点吸附搜索范围
	subsampleThreshold = 3000 // 超过该数量后隔一取一，抑制平方爆炸
)

// 标注缺失时的兜底宽度集合（常见构造尺寸）
var (
	nominalBeamWidths = []float64{200, 250, 300, 350, 400, 500, 600}
	nominalWallWidths = []float64{100, 120, 150, 180, 200, 240, 250, 300, 350, 370, 400, 500, 600}
)

// Rectangle 由一对平行线合成出的矩形构件，中轴线 Start-End 加宽度描述
type Rectangle struct {
	Start core.Point `json:"start"`
	End   core.Point `json:"end"`
	Width float64    `json:"width"`
	Layer string     `json:"layer"`
}

// Length 中轴线长度
func (r Rectangle) Length() float64 {
	return r.Start.Distance(r.End)
}

// Center 中轴线中点
func (r Rectangle) Center() core.Point {
	return core.Point{
		X: (r.Start.X + r.End.X) / 2,
		Y: (r.Start.Y + r.End.Y) / 2,
	}
}

// Vertices 四个角点，按两条轨线 x 两个端头排列成闭合顺序
func (r Rectangle) Vertices() []core.Point {
	dir := r.End.Sub(r.Start)
	length := dir.Length()
	if length < 1e-9 {
		return nil
	}
	dir = dir.Scale(1 / length)

	normal := core.Point{X: -dir.Y, Y: dir.X}.Scale(r.Width / 2)
	return []core.Point{
		r.Start.Add(normal),
		r.End.Add(normal),
		r.End.Sub(normal),
		r.Start.Sub(normal),
	}
}

// Polyline 生成闭合多段线实体
func (r Rectangle) Polyline() *entities.LWPolyline {
	return &entities.LWPolyline{
		BaseEntity: entities.BaseEntity{TypeName: "LWPOLYLINE", LayerName: r.Layer},
		Vertices:   r.Vertices(),
		Closed:     true,
	}
}

// BBox 外接包围盒
func (r Rectangle) BBox() core.BBox {
	vertices := r.Vertices()
	if len(vertices) == 0 {
		return core.BBox{Min: r.Start, Max: r.Start}
	}
	box := core.BBox{Min: vertices[0], Max: vertices[0]}
	for _, v := range vertices[1:] {
		box = box.Union(core.BBox{Min: v, Max: v})
	}
	return box
}

// SynthesisInput 平行线合成的全部输入，实体均为世界坐标
type SynthesisInput struct {
	Lines       []*entities.Line  // 候选双轨线
	Tolerance   float64           // 垂距搜索范围（梁 1200，墙 600）
	Obstacles   []entities.Entity // 可供端点吸附的障碍物（柱/墙）
	Axes        []*entities.Line  // 轴网线，校验/吸附构件端点
	ValidWidths []float64         // 有效宽度集合，空则回退到默认集合
	Mode        Mode
	ResultLayer string
}

// Synthesize 将成对的平行线合成为矩形构件
//
// 1. 两两配对近平行（方向余弦 >= 0.98）且垂距落在容差带内的线段
// 2. 垂距须命中有效宽度（±5），否则丢弃
// 3. 双线在公共轴上的投影交叠作为构件跨度，端头吸附到最近的障碍物边或轴线交点
// 4. 输出闭合矩形，并对同宽共线且端部相接的矩形做共线合并
func Synthesize(in SynthesisInput) []Rectangle {
	widths := in.ValidWidths
	if len(widths) == 0 {
		if in.Mode == ModeWall {
			widths = nominalWallWidths
		} else {
			widths = nominalBeamWidths
		}
	}

	// 预筛掉零长线段
	type candidate struct {
		line *entities.Line
		dir  core.Point
	}
	var candidates []candidate
	for _, l := range in.Lines {
		if dir, ok := direction(l); ok {
			candidates = append(candidates, candidate{line: l, dir: dir})
		}
	}

	// 数据量过大时隔一取一，性能与精度的折中
	step := 1
	if len(candidates) > subsampleThreshold {
		step = 2
	}

	var (
		rects []Rectangle
		used  = make([]bool, len(candidates))
	)

	for i := 0; i < len(candidates); i += step {
		if used[i] {
			continue
		}
		for j := i + step; j < len(candidates); j += step {
			if used[i] || used[j] {
				continue
			}

			var (
				a = candidates[i]
				b = candidates[j]
			)

			if math.Abs(a.dir.Dot(b.dir)) < parallelCosine {
				continue
			}

			// 垂距即候选宽度
			sep := perpDistance(b.line.Start, a.line.Start, a.dir)
			if sep < minSeparation || sep > in.Tolerance {
				continue
			}
			if !matchWidth(sep, widths) {
				continue
			}

			// 双线投影的交叠区间作为跨度
			var (
				lenA = a.line.Start.Distance(a.line.End)
				tb1  = projectParam(b.line.Start, a.line.Start, a.dir)
				tb2  = projectParam(b.line.End, a.line.Start, a.dir)
			)
			if tb1 > tb2 {
				tb1, tb2 = tb2, tb1
			}

			lo := math.Max(0, tb1)
			hi := math.Min(lenA, tb2)
			if hi-lo < 1 {
				continue
			}

			// 中轴线位于双轨正中
			normal := core.Point{X: -a.dir.Y, Y: a.dir.X}
			if projectToSide(b.line.Start, a.line.Start, normal) < 0 {
				normal = normal.Scale(-1)
			}

			var (
				offset = normal.Scale(sep / 2)
				start  = a.line.Start.Add(a.dir.Scale(lo)).Add(offset)
				end    = a.line.Start.Add(a.dir.Scale(hi)).Add(offset)
			)

			start = snapEnd(start, a.dir.Scale(-1), in)
			end = snapEnd(end, a.dir, in)
			if start.Distance(end) < 1 {
				continue
			}

			used[i], used[j] = true, true
			rects = append(rects, Rectangle{
				Start: start,
				End:   end,
				Width: sep,
				Layer: in.ResultLayer,
			})
			break
		}
	}

	return CollinearMerge(rects)
}

// projectToSide 判断 p 位于轴线哪一侧（正值为 normal 一侧）
func projectToSide(p, origin, normal core.Point) float64 {
	return p.Sub(origin).Dot(normal)
}

// matchWidth 宽度是否命中有效集合（±widthTolerance）
func matchWidth(sep float64, widths []float64) bool {
	for _, w := range widths {
		if xmath.Equal(sep, w, widthTolerance) {
			return true
		}
	}
	return false
}

// snapEnd 将端点沿 outDir 方向吸附到最近的障碍物边或轴线
// 梁模式优先障碍物（构件应顶到柱/墙面），墙模式优先轴线
func snapEnd(p, outDir core.Point, in SynthesisInput) core.Point {
	obstacleT, obstacleOK := nearestObstacleFace(p, outDir, in.Obstacles)
	axisT, axisOK := nearestAxisCrossing(p, outDir, in.Axes)

	var (
		t  float64
		ok bool
	)
	switch in.Mode {
	case ModeWall:
		t, ok = axisT, axisOK
		if !ok {
			t, ok = obstacleT, obstacleOK
		}
	default:
		t, ok = obstacleT, obstacleOK
		if !ok {
			t, ok = axisT, axisOK
		}
	}

	if !ok {
		return p
	}
	return p.Add(outDir.Scale(t))
}

// nearestObstacleFace 沿 outDir 搜索最近的障碍物进入面
func nearestObstacleFace(p, outDir core.Point, obstacles []entities.Entity) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, ob := range obstacles {
		t, ok := rayBBoxEntry(p, outDir, ob.BBox(), snapRange)
		if !ok {
			continue
		}
		if !found || math.Abs(t) < math.Abs(best) {
			best, found = t, true
		}
	}
	return best, found
}

// nearestAxisCrossing 沿 outDir 搜索最近的轴线交点
func nearestAxisCrossing(p, outDir core.Point, axes []*entities.Line) (float64, bool) {
	var (
		best  float64
		found bool
		from  = p.Sub(outDir.Scale(snapRange))
		to    = p.Add(outDir.Scale(snapRange))
	)
	for _, axis := range axes {
		cross, ok := segmentIntersection(from, to, axis.Start, axis.End)
		if !ok {
			continue
		}
		t := projectParam(cross, p, outDir)
		if !found || math.Abs(t) < math.Abs(best) {
			best, found = t, true
		}
	}
	return best, found
}

// CollinearMerge 合并同宽、共线、端部相接的矩形
// 多次描绘的中心线会产生碎段，这里把它们拼回整根构件
func CollinearMerge(rects []Rectangle) []Rectangle {
	if len(rects) < 2 {
		return rects
	}

	for {
		var (
			changed bool
			merged  []Rectangle
			visited = make([]bool, len(rects))
		)

		for i := 0; i < len(rects); i++ {
			if visited[i] {
				continue
			}
			curr := rects[i]
			visited[i] = true

			for j := i + 1; j < len(rects); j++ {
				if visited[j] {
					continue
				}
				if next, ok := mergeCollinear(curr, rects[j]); ok {
					curr = next
					visited[j], changed = true, true
				}
			}
			merged = append(merged, curr)
		}

		rects = merged
		if !changed {
			break
		}
	}

	return rects
}

// mergeCollinear 尝试合并两个矩形，要求同宽、方向平行、横向偏移小、端部间隙小
func mergeCollinear(a, b Rectangle) (Rectangle, bool) {
	if !xmath.Equal(a.Width, b.Width, widthTolerance) {
		return a, false
	}

	da := a.End.Sub(a.Start)
	lenA := da.Length()
	if lenA < 1e-9 {
		return a, false
	}
	da = da.Scale(1 / lenA)

	db := b.End.Sub(b.Start)
	lenB := db.Length()
	if lenB < 1e-9 {
		return a, false
	}
	db = db.Scale(1 / lenB)

	if math.Abs(da.Dot(db)) < 0.99 {
		return a, false
	}
	if perpDistance(b.Start, a.Start, da) > collinearOffsetTol {
		return a, false
	}

	// 投影区间有间隙则不是同一根构件
	params := []float64{
		0,
		lenA,
		projectParam(b.Start, a.Start, da),
		projectParam(b.End, a.Start, da),
	}
	sort.Float64s(params)

	gap := (params[3] - params[0]) - lenA - lenB
	if gap > collinearGapTol {
		return a, false
	}

	return Rectangle{
		Start: a.Start.Add(da.Scale(params[0])),
		End:   a.Start.Add(da.Scale(params[3])),
		Width: a.Width,
		Layer: a.Layer,
	}, true
}

// EstimateWallWidths 无标注提示时按频率推测墙厚
// 抽样统计近平行线对的垂距，取整到 10，保留既高频又接近标准厚度的桶
func EstimateWallWidths(lines []*entities.Line) []float64 {
	type candidate struct {
		line *entities.Line
		dir  core.Point
	}
	var candidates []candidate
	for _, l := range lines {
		if dir, ok := direction(l); ok {
			candidates = append(candidates, candidate{line: l, dir: dir})
		}
	}

	step := 1
	if len(candidates) > subsampleThreshold {
		step = 2
	}

	buckets := make(map[int]int)
	for i := 0; i < len(candidates); i += step {
		for j := i + step; j < len(candidates); j += step {
			a, b := candidates[i], candidates[j]
			if math.Abs(a.dir.Dot(b.dir)) < parallelCosine {
				continue
			}
			sep := perpDistance(b.line.Start, a.line.Start, a.dir)
			if sep < minSeparation || sep > 600 {
				continue
			}
			buckets[int(math.Round(sep/10))*10]++
		}
	}

	var widths []float64
	for bucket, count := range buckets {
		if count < 3 {
			continue
		}
		if matchWidth(float64(bucket), nominalWallWidths) {
			widths = append(widths, float64(bucket))
		}
	}

	sort.Float64s(widths)
	return widths
}
