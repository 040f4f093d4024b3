package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

const (
	mergeMargin     = 2000 // 重复区选取实体时的外扩余量，捞住压边的引注
	leaderSearchGap = 500  // 文字与引线的关联距离
)

// 合并结果按走向拆分到两个结果图层
const (
	LayerLabelH = "JG_LABEL_H" // 横向标注
	LayerLabelV = "JG_LABEL_V" // 纵向标注
)

// MergedView 一组重复视口的合并结果
//
// Vector 的符号约定：基准区指向重复区（v = 重复区指纹锚点 - 基准区指纹锚点），
// 搬运实体时减去 Vector 即落回基准区坐标。
type MergedView struct {
	Prefix    string            `json:"prefix"`
	BaseTitle string            `json:"baseTitle"`
	Titles    []string          `json:"titles"` // 参与合并的重复区标题
	Vectors   []core.Point      `json:"vectors"`
	Entities  []entities.Entity `json:"-"`
	Labels    []BeamLabelInfo   `json:"labels"`
}

// MergeInput 视图配准与合并的输入，实体均为世界坐标
type MergeInput struct {
	Regions     []ViewportRegion
	AxisLines   []*entities.Line  // 轴网线，用于指纹
	Annotations []entities.Entity // 候选标注实体（DIMENSION/TEXT/MTEXT/ATTRIB），已排除轴线图层
	LeaderLines []*entities.Line  // 标注图层上的引线，辅助走向判定
}

// GroupRegions 把标题前缀相同的区域归组（同一物理布局画了多份）
// 组内按编号升序，基准区为编号最小者；少于两个成员的前缀不构成重复组
func GroupRegions(regions []ViewportRegion) [][]ViewportRegion {
	var (
		order  []string
		groups = make(map[string][]ViewportRegion)
	)
	for _, region := range regions {
		if region.Parsed == nil {
			continue
		}
		prefix := region.Parsed.Prefix
		if _, ok := groups[prefix]; !ok {
			order = append(order, prefix)
		}
		groups[prefix] = append(groups[prefix], region)
	}

	var result [][]ViewportRegion
	for _, prefix := range order {
		group := groups[prefix]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Parsed.Index < group[j].Parsed.Index
		})
		result = append(result, group)
	}
	return result
}

// Fingerprint 区域内轴线交点的集合，作为配准指纹
// 交点坐标取整到 1 去重并参与排序，亚毫米绘图噪声不会翻转锚点
func Fingerprint(axisLines []*entities.Line, bounds core.BBox) []core.Point {
	var (
		points []core.Point
		seen   = make(map[[2]int64]bool)
	)

	for i := 0; i < len(axisLines); i++ {
		for j := i + 1; j < len(axisLines); j++ {
			cross, ok := segmentIntersection(
				axisLines[i].Start, axisLines[i].End,
				axisLines[j].Start, axisLines[j].End,
			)
			if !ok || !bounds.Contains(cross) {
				continue
			}

			key := [2]int64{int64(math.Round(cross.X)), int64(math.Round(cross.Y))}
			if seen[key] {
				continue
			}
			seen[key] = true
			points = append(points, core.Point{X: float64(key[0]), Y: float64(key[1])})
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].X != points[j].X {
			return points[i].X < points[j].X
		}
		return points[i].Y < points[j].Y
	})
	return points
}

// MergeVector 求把重复区叠合到基准区的平移向量
//
// 轴网正交且等距，无需做完整点云配准：取两个指纹各自
// 字典序最小的交点作为对应点，差值即平移量。
func MergeVector(base, secondary []core.Point) (core.Point, bool) {
	if len(base) == 0 || len(secondary) == 0 {
		return core.Point{}, false
	}
	return secondary[0].Sub(base[0]), true
}

// MergeDuplicateViews 配准并合并全部重复视口组
//
// 重复区内的标注类实体被平移回基准区坐标，按走向落到横/纵两个
// 结果图层；每条文字同时解析出结构化的梁标注信息，缺尺寸的先由
// 同编号标注补齐，补不上的置人工确认标记。
func MergeDuplicateViews(in MergeInput) ([]MergedView, error) {
	groups := GroupRegions(in.Regions)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: 没有标题前缀相同的重复视口", ErrNoData)
	}

	var views []MergedView
	for _, group := range groups {
		base := group[0]
		view := MergedView{
			Prefix:    base.Parsed.Prefix,
			BaseTitle: base.Title,
		}

		baseFinger := Fingerprint(in.AxisLines, base.Bounds)

		// 逐个重复区对齐到基准区（两两对基准，不做链式）
		for _, secondary := range group[1:] {
			secFinger := Fingerprint(in.AxisLines, secondary.Bounds)
			vector, ok := MergeVector(baseFinger, secFinger)
			if !ok {
				continue
			}

			view.Titles = append(view.Titles, secondary.Title)
			view.Vectors = append(view.Vectors, vector)

			scope := secondary.Bounds.Expand(mergeMargin)
			for _, ent := range in.Annotations {
				if !scope.Contains(annotationAnchor(ent)) {
					continue
				}
				merged, label := mergeAnnotation(ent, vector, in.LeaderLines)
				if merged == nil {
					continue
				}
				view.Entities = append(view.Entities, merged)
				if label != nil {
					view.Labels = append(view.Labels, *label)
				}
			}
		}

		// 一个重复区都没配准成功的组不产出结果
		if len(view.Vectors) == 0 {
			continue
		}

		view.Labels = BackfillLabels(view.Labels)
		views = append(views, view)
	}

	if len(views) == 0 {
		return nil, fmt.Errorf("%w: 重复视口内没有轴网交点可配准", ErrNoData)
	}
	return views, nil
}

// annotationAnchor 标注实体的定位点
func annotationAnchor(ent entities.Entity) core.Point {
	switch e := ent.(type) {
	case *entities.Text:
		return e.Location
	case *entities.Attrib:
		return e.Location
	case *entities.Dimension:
		return e.TextMidPoint
	}
	return ent.BBox().Center()
}

// mergeAnnotation 平移一条标注回基准区，按走向分配结果图层
// 文字类标注同时产出结构化信息；非标注类实体返回 nil
func mergeAnnotation(ent entities.Entity, vector core.Point, leaders []*entities.Line) (entities.Entity, *BeamLabelInfo) {
	switch e := ent.(type) {
	case *entities.Text:
		leader := nearestLeader(e.Location, leaders)
		orientation := ClassifyOrientation(e.Layer(), leader, e.Rotation)

		cp := *e
		cp.LayerName = orientationLayer(orientation)
		cp.Location = e.Location.Sub(vector)

		info, ok := ParseBeamLabel(e.Value)
		if !ok {
			return &cp, nil
		}
		info.ID = uuid.NewString()
		info.Location = cp.Location
		info.Orientation = orientation
		info.Layer = cp.LayerName
		return &cp, &info

	case *entities.Attrib:
		leader := nearestLeader(e.Location, leaders)
		orientation := ClassifyOrientation(e.Layer(), leader, 0)

		cp := *e
		cp.LayerName = orientationLayer(orientation)
		cp.Location = e.Location.Sub(vector)

		info, ok := ParseBeamLabel(e.Text)
		if !ok {
			return &cp, nil
		}
		info.ID = uuid.NewString()
		info.Location = cp.Location
		info.Orientation = orientation
		info.Layer = cp.LayerName
		return &cp, &info

	case *entities.Dimension:
		orientation := OrientationHorizontal
		if angle := math.Mod(math.Abs(e.Angle), 180); angle > 45 && angle < 135 {
			orientation = OrientationVertical
		}

		cp := *e
		cp.LayerName = orientationLayer(orientation)
		cp.DefPoint = e.DefPoint.Sub(vector)
		cp.TextMidPoint = e.TextMidPoint.Sub(vector)
		cp.MeasureStart = e.MeasureStart.Sub(vector)
		cp.MeasureEnd = e.MeasureEnd.Sub(vector)
		return &cp, nil
	}

	return nil, nil
}

// orientationLayer 走向对应的结果图层
func orientationLayer(o Orientation) string {
	if o == OrientationVertical {
		return LayerLabelV
	}
	return LayerLabelH
}

// nearestLeader 文字附近最近的引线，超出关联距离返回 nil
func nearestLeader(p core.Point, leaders []*entities.Line) *entities.Line {
	var (
		best     *entities.Line
		bestDist = math.MaxFloat64
	)
	for _, leader := range leaders {
		dist := math.Min(p.Distance(leader.Start), p.Distance(leader.End))
		if dist < bestDist {
			best, bestDist = leader, dist
		}
	}
	if bestDist > leaderSearchGap {
		return nil
	}
	return best
}
