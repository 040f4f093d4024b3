package analysis

import (
	"errors"

	"github.com/google/uuid"

	"github.com/zooyer/beamcad"
	"github.com/zooyer/beamcad/config"
	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
	"github.com/zooyer/beamcad/utils"
)

// 流水线的结果图层，每个阶段重跑前先清空自己的结果图层（替换语义）
const (
	LayerBeamRaw    = "JG_BEAM_RAW"    // 阶段1：原始合成矩形
	LayerBeamSplit  = "JG_BEAM_SPLIT"  // 阶段2：按交点切分后的梁段
	LayerBeamCross  = "JG_BEAM_CROSS"  // 阶段2：交点标记
	LayerBeamNoAttr = "JG_BEAM_NOATTR" // 阶段3：未挂上标注的梁段（调试）
	LayerBeam       = "JG_BEAM"        // 阶段4：最终梁实例
	LayerBeamErr    = "JG_BEAM_ERR"    // 阶段4：属性冲突的梁段
)

// 阶段编号，快照中的 step 即最近一次成功安装的阶段
const (
	StepNone = iota
	StepRaw
	StepSplit
	StepMount
	StepTopology
)

var (
	// ErrNoData 阶段正常执行但没有可处理的数据（区别于空结果成功）
	ErrNoData = errors.New("没有可处理的数据")
	// ErrStageOrder 前置阶段尚未执行
	ErrStageOrder = errors.New("前置阶段尚未执行")
)

// BeamInfo 一段梁：中轴线两端点加截面尺寸
type BeamInfo struct {
	ID          string     `json:"id"`
	Layer       string     `json:"layer"`
	Code        string     `json:"code"`
	Span        string     `json:"span"`
	Start       core.Point `json:"start"`
	End         core.Point `json:"end"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	NeedConfirm bool       `json:"needConfirm"`
}

// Length 梁段长度
func (b BeamInfo) Length() float64 {
	return b.Start.Distance(b.End)
}

// Center 梁段中点
func (b BeamInfo) Center() core.Point {
	return core.Point{
		X: (b.Start.X + b.End.X) / 2,
		Y: (b.Start.Y + b.End.Y) / 2,
	}
}

// Volume 体积（mm3），长 x 宽 x 高
func (b BeamInfo) Volume() float64 {
	return b.Length() * b.Width * b.Height
}

// Rect 梁段对应的矩形
func (b BeamInfo) Rect(layer string) Rectangle {
	return Rectangle{Start: b.Start, End: b.End, Width: b.Width, Layer: layer}
}

// WallInfo 一段墙：矩形加墙厚
type WallInfo struct {
	ID        string    `json:"id"`
	Layer     string    `json:"layer"`
	Rect      Rectangle `json:"rect"`
	Thickness float64   `json:"thickness"`
}

// ColumnInfo 一根柱：多边形轮廓或圆形定义
type ColumnInfo struct {
	ID       string       `json:"id"`
	Layer    string       `json:"layer"`
	Vertices []core.Point `json:"vertices,omitempty"`
	Center   core.Point   `json:"center,omitempty"`
	Radius   float64      `json:"radius,omitempty"`
	Bounds   core.BBox    `json:"bounds"`
}

// Project 一张图纸的分析状态
//
// Doc 在各阶段间只增不减（结果图层的替换清理除外），
// 各信息列表由对应阶段整体替换，从不原地修改。
type Project struct {
	Name    string
	Doc     *beamcad.Document
	Layers  config.Layers
	Regions []ViewportRegion
	Merged  []MergedView
	Labels  []BeamLabelInfo
	Columns []ColumnInfo
	Walls   []WallInfo

	RawBeams []Rectangle // 阶段1
	Segments []BeamInfo  // 阶段2
	Mounted  []BeamInfo  // 阶段3
	Beams    []BeamInfo  // 阶段4

	Step int
}

// NewProject 创建项目
func NewProject(name string, doc *beamcad.Document, layers config.Layers) *Project {
	return &Project{Name: name, Doc: doc, Layers: layers}
}

// StageResult 一个阶段产出的完整替换快照，由调用方安装
type StageResult struct {
	Step          int
	ReplaceLayers []string // 安装前先清空这些结果图层
	Entities      []entities.Entity

	RawBeams []Rectangle
	Segments []BeamInfo
	Mounted  []BeamInfo
	Beams    []BeamInfo

	Message string // 给用户看的一句话结果
}

// Apply 安装阶段结果：清空结果图层再写入，保证重跑幂等
func (p *Project) Apply(result *StageResult) {
	if result == nil {
		return
	}

	p.Doc.RemoveLayers(result.ReplaceLayers...)
	p.Doc.AddEntities(result.Entities...)

	switch result.Step {
	case StepRaw:
		p.RawBeams = result.RawBeams
		// 重跑早期阶段后，后续阶段的结论全部失效
		p.Segments, p.Mounted, p.Beams = nil, nil, nil
		p.Doc.RemoveLayers(LayerBeamSplit, LayerBeamCross, LayerBeamNoAttr, LayerBeam, LayerBeamErr)
	case StepSplit:
		p.Segments = result.Segments
		p.Mounted, p.Beams = nil, nil
		p.Doc.RemoveLayers(LayerBeamNoAttr, LayerBeam, LayerBeamErr)
	case StepMount:
		p.Mounted = result.Mounted
		p.Beams = nil
		p.Doc.RemoveLayers(LayerBeam, LayerBeamErr)
	case StepTopology:
		p.Beams = result.Beams
	}

	p.Step = result.Step
}

// DetectColumns 从柱图层提取柱信息
//
// 闭合多段线与圆直接成柱；散线按包围盒邻近合并成柱框
// （图纸里柱常用四条独立短线描边）。
func DetectColumns(doc *beamcad.Document, layers config.Layers) []ColumnInfo {
	columnLayers := layers.Get(config.RoleColumn)
	if len(columnLayers) == 0 {
		return nil
	}

	var (
		columns []ColumnInfo
		loose   []core.BBox
		layer   string
	)

	for _, ent := range FlattenLayers(doc, columnLayers) {
		layer = ent.Layer()
		switch e := ent.(type) {
		case *entities.LWPolyline:
			if e.Closed && len(e.Vertices) >= 3 {
				columns = append(columns, ColumnInfo{
					ID:       uuid.NewString(),
					Layer:    e.Layer(),
					Vertices: e.Vertices,
					Bounds:   e.BBox(),
				})
			} else {
				loose = append(loose, e.BBox())
			}
		case *entities.Circle:
			columns = append(columns, ColumnInfo{
				ID:     uuid.NewString(),
				Layer:  e.Layer(),
				Center: e.Center,
				Radius: e.Radius,
				Bounds: e.BBox(),
			})
		case *entities.Line:
			loose = append(loose, e.BBox())
		case *entities.Insert:
			// 柱块引用按块内容的世界包围盒参与合并
			loose = append(loose, utils.GetEntityBBoxWCS(doc, e))
		}
	}

	// 散线合并，间隙 20 内视为同一根柱
	for _, box := range utils.MergeBoxes(loose, 20) {
		if box.Width() < minSeparation || box.Height() < minSeparation {
			continue
		}
		columns = append(columns, ColumnInfo{
			ID:    uuid.NewString(),
			Layer: layer,
			Vertices: []core.Point{
				box.Min,
				{X: box.Max.X, Y: box.Min.Y},
				box.Max,
				{X: box.Min.X, Y: box.Max.Y},
			},
			Bounds: box,
		})
	}

	return columns
}

// DetectWalls 从墙图层合成墙段
// 无标注提示时先按频率推测常见墙厚
func DetectWalls(doc *beamcad.Document, layers config.Layers) []WallInfo {
	wallLayers := layers.Get(config.RoleWall)
	if len(wallLayers) == 0 {
		return nil
	}

	lines := linesOf(FlattenLayers(doc, wallLayers))
	if len(lines) == 0 {
		return nil
	}

	var axes []*entities.Line
	if axisLayers := layers.Get(config.RoleAxis); len(axisLayers) > 0 {
		axes = linesOf(FlattenLayers(doc, axisLayers))
	}

	rects := Synthesize(SynthesisInput{
		Lines:       lines,
		Tolerance:   wallSearchRange,
		Axes:        axes,
		ValidWidths: EstimateWallWidths(lines),
		Mode:        ModeWall,
		ResultLayer: wallLayers[0],
	})

	walls := make([]WallInfo, 0, len(rects))
	for _, rect := range rects {
		walls = append(walls, WallInfo{
			ID:        uuid.NewString(),
			Layer:     rect.Layer,
			Rect:      rect,
			Thickness: rect.Width,
		})
	}
	return walls
}
