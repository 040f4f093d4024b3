package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/zooyer/beamcad/config"
	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
	"github.com/zooyer/beamcad/utils"
	"github.com/zooyer/golib/xmath"
)

const (
	beamSearchRange = 1200 // 梁双轨线的垂距搜索范围
	wallSearchRange = 600  // 墙双轨线的垂距搜索范围
	minBeamLength   = 500  // 短于该长度的梁段直接丢弃
	labelMountRange = 1200 // 梁段与标注的关联距离
	crossMarkRadius = 50   // 交点标记圆半径
	splitMinSegment = 1    // 切分后短于该长度的碎段丢弃
)

// ResolveRegions 聚类轴网并解析视口标题，结果由调用方安装到 Regions
func ResolveRegions(p *Project) ([]ViewportRegion, error) {
	axisLayers, err := p.Layers.Require(config.RoleAxis)
	if err != nil {
		return nil, err
	}

	axisLines := linesOf(FlattenLayers(p.Doc, axisLayers))
	if len(axisLines) == 0 {
		return nil, fmt.Errorf("%w: 轴网图层没有线段", ErrNoData)
	}

	regions := ClusterViewports(axisLines)
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: 轴网无法聚类出任何视口", ErrNoData)
	}

	if titleLayers := p.Layers.Get(config.RoleViewportTitle); len(titleLayers) > 0 {
		return ResolveTitles(regions, titleCandidates(p, titleLayers), titleLayers), nil
	}

	// 未配置标题图层时扫描全部文字图层
	return ResolveTitles(regions, titleCandidates(p, p.Doc.Layers), nil), nil
}

// titleCandidates 标题候选文字：图层上的文字，加上标题栏块的"图名"属性
func titleCandidates(p *Project, layers []string) []*entities.Text {
	var texts []*entities.Text
	for _, ent := range FlattenLayers(p.Doc, layers) {
		switch e := ent.(type) {
		case *entities.Text:
			texts = append(texts, e)
		case *entities.Insert:
			if name := utils.GetAttr(e, "图名"); name != "" {
				texts = append(texts, &entities.Text{
					BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: e.Layer()},
					Location:   e.InsertionPoint,
					Value:      name,
				})
			}
		}
	}
	return texts
}

// allAxisLayers 主轴网加次轴网图层
func allAxisLayers(p *Project) []string {
	return append(
		append([]string{}, p.Layers.Get(config.RoleAxis)...),
		p.Layers.Get(config.RoleAxisOther)...,
	)
}

// MergeResult 视图合并的替换快照
type MergeResult struct {
	Views    []MergedView
	Labels   []BeamLabelInfo
	Entities []entities.Entity
	Message  string
}

// MergeViews 配准重复视口并搬运标注，前置条件：已完成视口聚类
func MergeViews(p *Project) (*MergeResult, error) {
	if len(p.Regions) == 0 {
		return nil, fmt.Errorf("%w: 请先完成视口聚类", ErrStageOrder)
	}

	axisLayers, err := p.Layers.Require(config.RoleAxis)
	if err != nil {
		return nil, err
	}
	axisLines := linesOf(FlattenLayers(p.Doc, axisLayers))

	labelLayers := append(
		append([]string{}, p.Layers.Get(config.RoleBeamLabel)...),
		p.Layers.Get(config.RoleBeamSituLabel)...,
	)

	axisSet := make(map[string]bool)
	for _, layer := range allAxisLayers(p) {
		axisSet[layer] = true
	}

	// 候选标注：任意非轴线图层的尺寸标注 + 标注图层上的文字/属性
	// 读不出数值的退化标注直接丢弃
	var annotations []entities.Entity
	for _, ent := range FlattenLayers(p.Doc, p.Doc.Layers) {
		if axisSet[ent.Layer()] {
			continue
		}
		if dim, ok := ent.(*entities.Dimension); ok && utils.GetDimValue(p.Doc, dim) > 0 {
			annotations = append(annotations, ent)
		}
	}
	var leaders []*entities.Line
	if len(labelLayers) > 0 {
		for _, ent := range FlattenLayers(p.Doc, labelLayers) {
			switch ent.(type) {
			case *entities.Text, *entities.Attrib:
				annotations = append(annotations, ent)
			case *entities.Line:
				leaders = append(leaders, ent.(*entities.Line))
			}
		}
	}

	views, err := MergeDuplicateViews(MergeInput{
		Regions:     p.Regions,
		AxisLines:   axisLines,
		Annotations: annotations,
		LeaderLines: leaders,
	})
	if err != nil {
		return nil, err
	}

	result := &MergeResult{Views: views}
	for _, view := range views {
		result.Entities = append(result.Entities, view.Entities...)
		result.Labels = append(result.Labels, view.Labels...)
	}
	result.Message = fmt.Sprintf("合并 %d 组重复视口，搬运 %d 条标注", len(views), len(result.Entities))
	return result, nil
}

// ApplyMerge 安装合并结果（横/纵标注图层替换写入）
func (p *Project) ApplyMerge(result *MergeResult) {
	if result == nil {
		return
	}
	p.Doc.RemoveLayers(LayerLabelH, LayerLabelV)
	p.Doc.AddEntities(result.Entities...)
	p.Merged = result.Views
	p.Labels = result.Labels
}

// StageRawBeams 阶段1：平行线合成原始梁矩形
//
// 梁线图层跑 BEAM 模式合成，墙/柱充当端点吸附障碍，轴网做有效性
// 校验，梁标注文字里的 宽x高 提供有效宽度提示。others 允许跨图纸
// 借用障碍物（墙柱画在另一张已加载图纸里的场景），只读不写。
func StageRawBeams(p *Project, others ...*Project) (*StageResult, error) {
	beamLayers, err := p.Layers.Require(config.RoleBeam)
	if err != nil {
		return nil, err
	}
	if _, err := p.Layers.Require(config.RoleAxis); err != nil {
		return nil, err
	}

	lines := linesOf(FlattenLayers(p.Doc, beamLayers))
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: 梁线图层没有可用线段", ErrNoData)
	}

	axes := linesOf(FlattenLayers(p.Doc, allAxisLayers(p)))

	obstacles := obstacleEntities(p)
	for _, other := range others {
		obstacles = append(obstacles, obstacleEntities(other)...)
	}

	// 宽度提示：优先标注文字，其次视图合并产出的结构化标注
	var hints []float64
	if labelLayers := p.Layers.Get(config.RoleBeamLabel); len(labelLayers) > 0 {
		hints = ParseSizeHints(textsOf(FlattenLayers(p.Doc, labelLayers)))
	}
	if len(hints) == 0 {
		for _, label := range p.Labels {
			if label.Width > 0 {
				hints = append(hints, label.Width)
			}
		}
	}

	rects := Synthesize(SynthesisInput{
		Lines:       lines,
		Tolerance:   beamSearchRange,
		Obstacles:   obstacles,
		Axes:        axes,
		ValidWidths: hints,
		Mode:        ModeBeam,
		ResultLayer: LayerBeamRaw,
	})

	// 过短的碎段在此过滤，合成器只管几何
	kept := rects[:0]
	for _, rect := range rects {
		if rect.Length() >= minBeamLength {
			kept = append(kept, rect)
		}
	}
	rects = kept

	if len(rects) == 0 {
		return nil, fmt.Errorf("%w: 未找到符合宽度的平行线对", ErrNoData)
	}

	result := &StageResult{
		Step:          StepRaw,
		ReplaceLayers: []string{LayerBeamRaw},
		RawBeams:      rects,
		Message:       fmt.Sprintf("合成 %d 根原始梁", len(rects)),
	}
	for _, rect := range rects {
		result.Entities = append(result.Entities, rect.Polyline())
	}
	return result, nil
}

// obstacleEntities 项目内可作端点吸附的障碍物（柱轮廓与墙矩形）
func obstacleEntities(p *Project) []entities.Entity {
	var (
		columns = p.Columns
		walls   = p.Walls
	)
	if len(columns) == 0 {
		columns = DetectColumns(p.Doc, p.Layers)
	}
	if len(walls) == 0 {
		walls = DetectWalls(p.Doc, p.Layers)
	}

	var obstacles []entities.Entity
	for _, column := range columns {
		if column.Radius > 0 {
			obstacles = append(obstacles, &entities.Circle{
				BaseEntity: entities.BaseEntity{TypeName: "CIRCLE", LayerName: column.Layer},
				Center:     column.Center,
				Radius:     column.Radius,
			})
			continue
		}
		obstacles = append(obstacles, &entities.LWPolyline{
			BaseEntity: entities.BaseEntity{TypeName: "LWPOLYLINE", LayerName: column.Layer},
			Vertices:   column.Vertices,
			Closed:     true,
		})
	}
	for _, wall := range walls {
		obstacles = append(obstacles, wall.Rect.Polyline())
	}
	return obstacles
}

// StageIntersections 阶段2：在梁与梁/墙相交处切分
func StageIntersections(p *Project) (*StageResult, error) {
	if len(p.RawBeams) == 0 {
		return nil, fmt.Errorf("%w: 请先执行梁原始生成", ErrStageOrder)
	}

	walls := p.Walls
	if len(walls) == 0 {
		walls = DetectWalls(p.Doc, p.Layers)
	}

	var (
		segments  []BeamInfo
		crossings []core.Point
		seen      = make(map[[2]int64]bool)
	)

	for i, rect := range p.RawBeams {
		params := []float64{0, rect.Length()}

		dir := rect.End.Sub(rect.Start)
		if dir.Length() < 1e-9 {
			continue
		}
		dir = dir.Scale(1 / dir.Length())

		collect := func(other Rectangle) {
			cross, ok := segmentIntersection(rect.Start, rect.End, other.Start, other.End)
			if !ok {
				return
			}
			t := projectParam(cross, rect.Start, dir)
			if t <= splitMinSegment || t >= rect.Length()-splitMinSegment {
				return
			}
			params = append(params, t)

			key := [2]int64{int64(math.Round(cross.X)), int64(math.Round(cross.Y))}
			if !seen[key] {
				seen[key] = true
				crossings = append(crossings, cross)
			}
		}

		for j, other := range p.RawBeams {
			if i != j {
				collect(other)
			}
		}
		for _, wall := range walls {
			collect(wall.Rect)
		}

		sort.Float64s(params)
		for k := 0; k+1 < len(params); k++ {
			if params[k+1]-params[k] < splitMinSegment {
				continue
			}
			segments = append(segments, BeamInfo{
				ID:    uuid.NewString(),
				Layer: LayerBeamSplit,
				Start: rect.Start.Add(dir.Scale(params[k])),
				End:   rect.Start.Add(dir.Scale(params[k+1])),
				Width: rect.Width,
			})
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: 切分后没有剩余梁段", ErrNoData)
	}

	result := &StageResult{
		Step:          StepSplit,
		ReplaceLayers: []string{LayerBeamSplit, LayerBeamCross},
		Segments:      segments,
		Message:       fmt.Sprintf("切分出 %d 段，%d 处交点", len(segments), len(crossings)),
	}
	for _, segment := range segments {
		result.Entities = append(result.Entities, segment.Rect(LayerBeamSplit).Polyline())
	}
	for _, cross := range crossings {
		result.Entities = append(result.Entities, &entities.Circle{
			BaseEntity: entities.BaseEntity{TypeName: "CIRCLE", LayerName: LayerBeamCross},
			Center:     cross,
			Radius:     crossMarkRadius,
		})
	}
	return result, nil
}

// StageMountAttributes 阶段3：给梁段挂载标注属性
func StageMountAttributes(p *Project) (*StageResult, error) {
	if len(p.Segments) == 0 {
		return nil, fmt.Errorf("%w: 请先执行交点切分", ErrStageOrder)
	}

	labels := p.Labels
	if len(labels) == 0 {
		labels = directLabels(p)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: 没有可挂载的梁标注", ErrNoData)
	}

	var (
		mounted    []BeamInfo
		unresolved []entities.Entity
	)

	for _, segment := range p.Segments {
		info := segment
		info.ID = uuid.NewString()

		orientation := OrientationHorizontal
		d := segment.End.Sub(segment.Start)
		if math.Abs(d.Y) > math.Abs(d.X) {
			orientation = OrientationVertical
		}

		if label := nearestLabel(segment.Center(), orientation, labels); label != nil {
			info.Code = label.Code
			info.Span = label.Span
			info.Height = label.Height
			info.NeedConfirm = label.NeedConfirm || label.Height <= 0
			// 标注宽与双轨实测宽相左：保留几何宽，提请人工复核
			if label.Width > 0 && !xmath.Equal(label.Width, segment.Width, widthTolerance) {
				info.NeedConfirm = true
			}
		} else {
			info.NeedConfirm = true
			unresolved = append(unresolved, &entities.Text{
				BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: LayerBeamNoAttr},
				Location:   segment.Center(),
				Height:     200,
				Value:      "未挂载标注",
			})
		}

		mounted = append(mounted, info)
	}

	return &StageResult{
		Step:          StepMount,
		ReplaceLayers: []string{LayerBeamNoAttr},
		Entities:      unresolved,
		Mounted:       mounted,
		Message:       fmt.Sprintf("挂载完成，%d 段待人工确认", len(unresolved)),
	}, nil
}

// directLabels 未做视图合并时直接解析标注图层的文字
func directLabels(p *Project) []BeamLabelInfo {
	labelLayers := append(
		append([]string{}, p.Layers.Get(config.RoleBeamLabel)...),
		p.Layers.Get(config.RoleBeamSituLabel)...,
	)
	if len(labelLayers) == 0 {
		return nil
	}

	var (
		labels  []BeamLabelInfo
		leaders []*entities.Line
		texts   []*entities.Text
	)
	for _, ent := range FlattenLayers(p.Doc, labelLayers) {
		switch e := ent.(type) {
		case *entities.Text:
			texts = append(texts, e)
		case *entities.Line:
			leaders = append(leaders, e)
		}
	}

	for _, text := range texts {
		info, ok := ParseBeamLabel(text.Value)
		if !ok {
			continue
		}
		info.ID = uuid.NewString()
		info.Location = text.Location
		info.Layer = text.Layer()
		info.Orientation = ClassifyOrientation(text.Layer(), nearestLeader(text.Location, leaders), text.Rotation)
		labels = append(labels, info)
	}

	return BackfillLabels(labels)
}

// nearestLabel 梁段中点附近走向匹配的最近标注
func nearestLabel(center core.Point, orientation Orientation, labels []BeamLabelInfo) *BeamLabelInfo {
	var (
		best     *BeamLabelInfo
		bestDist = math.MaxFloat64
	)
	for i := range labels {
		label := &labels[i]
		if label.Orientation != OrientationUnknown && label.Orientation != orientation {
			continue
		}
		dist := center.Distance(label.Location)
		if dist < bestDist {
			best, bestDist = label, dist
		}
	}
	if bestDist > labelMountRange {
		return nil
	}
	return best
}

// StageTopology 阶段4：共线同属性的梁段归并为最终梁实例
func StageTopology(p *Project) (*StageResult, error) {
	if len(p.Mounted) == 0 {
		return nil, fmt.Errorf("%w: 请先执行属性挂载", ErrStageOrder)
	}

	var (
		beams     []BeamInfo
		conflicts []entities.Entity
		visited   = make([]bool, len(p.Mounted))
	)

	for i := 0; i < len(p.Mounted); i++ {
		if visited[i] {
			continue
		}
		curr := p.Mounted[i]
		visited[i] = true

		for j := i + 1; j < len(p.Mounted); j++ {
			if visited[j] {
				continue
			}
			next, status := mergeBeamSegments(curr, p.Mounted[j])
			switch status {
			case beamMerged:
				curr = next
				visited[j] = true
				j = i // 合并扩大了范围，从头再扫一遍
			case beamConflict:
				conflicts = append(conflicts, p.Mounted[j].Rect(LayerBeamErr).Polyline())
			}
		}

		curr.ID = uuid.NewString()
		curr.Layer = LayerBeam
		beams = append(beams, curr)
	}

	result := &StageResult{
		Step:          StepTopology,
		ReplaceLayers: []string{LayerBeam, LayerBeamErr},
		Entities:      conflicts,
		Beams:         beams,
		Message:       fmt.Sprintf("归并出 %d 根梁，%d 处属性冲突", len(beams), len(conflicts)),
	}
	for _, beam := range beams {
		result.Entities = append(result.Entities, beam.Rect(LayerBeam).Polyline())
	}
	return result, nil
}

type beamMergeStatus int

const (
	beamSkip beamMergeStatus = iota
	beamMerged
	beamConflict
)

// mergeBeamSegments 尝试归并两个梁段
// 共线且端部相接：属性一致则合并，属性相左则判冲突
func mergeBeamSegments(a, b BeamInfo) (BeamInfo, beamMergeStatus) {
	da := a.End.Sub(a.Start)
	lenA := da.Length()
	if lenA < 1e-9 {
		return a, beamSkip
	}
	da = da.Scale(1 / lenA)

	db := b.End.Sub(b.Start)
	lenB := db.Length()
	if lenB < 1e-9 {
		return a, beamSkip
	}
	db = db.Scale(1 / lenB)

	if math.Abs(da.Dot(db)) < 0.99 {
		return a, beamSkip
	}
	if perpDistance(b.Start, a.Start, da) > collinearOffsetTol {
		return a, beamSkip
	}

	params := []float64{
		0,
		lenA,
		projectParam(b.Start, a.Start, da),
		projectParam(b.End, a.Start, da),
	}
	sort.Float64s(params)
	if (params[3]-params[0])-lenA-lenB > collinearGapTol {
		return a, beamSkip
	}

	// 共线相接但属性相左，留给人工
	if a.Code != b.Code ||
		!xmath.Equal(a.Width, b.Width, widthTolerance) ||
		!xmath.Equal(a.Height, b.Height, widthTolerance) {
		return a, beamConflict
	}

	merged := a
	merged.Start = a.Start.Add(da.Scale(params[0]))
	merged.End = a.Start.Add(da.Scale(params[3]))
	merged.NeedConfirm = a.NeedConfirm || b.NeedConfirm
	return merged, beamMerged
}
