package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zooyer/beamcad"
	"github.com/zooyer/beamcad/config"
	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// resultLayers 全部结果图层，快照只保存这些图层上的生成实体，
// 原始图纸实体由调用方重新打开 DXF 取得
var resultLayers = []string{
	LayerLabelH, LayerLabelV,
	LayerBeamRaw, LayerBeamSplit, LayerBeamCross,
	LayerBeamNoAttr, LayerBeam, LayerBeamErr,
}

// entityRecord 实体的扁平 JSON 形式，覆盖快照需要往返的类型
type entityRecord struct {
	Type        string       `json:"type"`
	Layer       string       `json:"layer"`
	Points      []core.Point `json:"points,omitempty"`
	Closed      bool         `json:"closed,omitempty"`
	Center      *core.Point  `json:"center,omitempty"`
	Radius      float64      `json:"radius,omitempty"`
	Rotation    float64      `json:"rotation,omitempty"`
	Height      float64      `json:"height,omitempty"`
	Value       string       `json:"value,omitempty"`
	Angle       float64      `json:"angle,omitempty"`
	Measurement float64      `json:"measurement,omitempty"`
}

// encodeEntity 实体转扁平记录，不认识的类型返回 false
func encodeEntity(ent entities.Entity) (entityRecord, bool) {
	switch e := ent.(type) {
	case *entities.Line:
		return entityRecord{
			Type:   e.Type(),
			Layer:  e.Layer(),
			Points: []core.Point{e.Start, e.End},
		}, true

	case *entities.LWPolyline:
		return entityRecord{
			Type:   e.Type(),
			Layer:  e.Layer(),
			Points: e.Vertices,
			Closed: e.Closed,
		}, true

	case *entities.Circle:
		center := e.Center
		return entityRecord{
			Type:   e.Type(),
			Layer:  e.Layer(),
			Center: &center,
			Radius: e.Radius,
		}, true

	case *entities.Text:
		location := e.Location
		return entityRecord{
			Type:     e.Type(),
			Layer:    e.Layer(),
			Center:   &location,
			Rotation: e.Rotation,
			Height:   e.Height,
			Value:    e.Value,
		}, true

	case *entities.Attrib:
		location := e.Location
		return entityRecord{
			Type:   e.Type(),
			Layer:  e.Layer(),
			Center: &location,
			Value:  e.Text,
		}, true

	case *entities.Dimension:
		return entityRecord{
			Type:        e.Type(),
			Layer:       e.Layer(),
			Points:      []core.Point{e.DefPoint, e.TextMidPoint, e.MeasureStart, e.MeasureEnd},
			Angle:       e.Angle,
			Value:       e.Text,
			Measurement: e.ActualMeasurement,
		}, true
	}

	return entityRecord{}, false
}

// decodeEntity 扁平记录还原实体，非法记录返回 nil
func decodeEntity(rec entityRecord) entities.Entity {
	base := entities.BaseEntity{TypeName: rec.Type, LayerName: rec.Layer}

	switch rec.Type {
	case "LINE":
		if len(rec.Points) != 2 {
			return nil
		}
		return &entities.Line{BaseEntity: base, Start: rec.Points[0], End: rec.Points[1]}

	case "LWPOLYLINE":
		if len(rec.Points) == 0 {
			return nil
		}
		return &entities.LWPolyline{BaseEntity: base, Vertices: rec.Points, Closed: rec.Closed}

	case "CIRCLE":
		if rec.Center == nil {
			return nil
		}
		return &entities.Circle{BaseEntity: base, Center: *rec.Center, Radius: rec.Radius}

	case "TEXT", "MTEXT":
		if rec.Center == nil {
			return nil
		}
		return &entities.Text{
			BaseEntity: base,
			Location:   *rec.Center,
			Rotation:   rec.Rotation,
			Height:     rec.Height,
			Value:      rec.Value,
		}

	case "ATTRIB":
		if rec.Center == nil {
			return nil
		}
		return &entities.Attrib{BaseEntity: base, Location: *rec.Center, Text: rec.Value}

	case "DIMENSION":
		if len(rec.Points) != 4 {
			return nil
		}
		return &entities.Dimension{
			BaseEntity:        base,
			DefPoint:          rec.Points[0],
			TextMidPoint:      rec.Points[1],
			MeasureStart:      rec.Points[2],
			MeasureEnd:        rec.Points[3],
			Angle:             rec.Angle,
			Text:              rec.Value,
			ActualMeasurement: rec.Measurement,
		}
	}

	return nil
}

// SnapshotData 各阶段的派生数据与结果图层实体
type SnapshotData struct {
	Labels   []BeamLabelInfo `json:"labels"`
	RawBeams []Rectangle     `json:"rawBeams"`
	Segments []BeamInfo      `json:"segments"`
	Mounted  []BeamInfo      `json:"mounted"`
	Beams    []BeamInfo      `json:"beams"`
	Entities []entityRecord  `json:"entities"`
}

// Snapshot 分析状态的持久化快照
// 导入快照后从任意后续阶段继续，结果与连续执行一致
type Snapshot struct {
	Name           string           `json:"name"`
	CreatedAt      time.Time        `json:"createdAt"`
	LayerConfig    config.Layers    `json:"layerConfig"`
	SplitRegions   []ViewportRegion `json:"splitRegions"`
	MergedViewData []MergedView     `json:"mergedViewData"`
	Columns        []ColumnInfo     `json:"columns"`
	Walls          []WallInfo       `json:"walls"`
	Data           SnapshotData     `json:"data"`
	ActiveLayers   []string         `json:"activeLayers"`
	FilledLayers   []string         `json:"filledLayers"`
	Step           int              `json:"step"`
}

// Export 导出当前分析状态
func Export(p *Project) *Snapshot {
	snapshot := &Snapshot{
		Name:           p.Name,
		CreatedAt:      time.Now(),
		LayerConfig:    p.Layers,
		SplitRegions:   p.Regions,
		MergedViewData: p.Merged,
		Columns:        p.Columns,
		Walls:          p.Walls,
		ActiveLayers:   p.Doc.Layers,
		Step:           p.Step,
		Data: SnapshotData{
			Labels:   p.Labels,
			RawBeams: p.RawBeams,
			Segments: p.Segments,
			Mounted:  p.Mounted,
			Beams:    p.Beams,
		},
	}

	result := make(map[string]bool, len(resultLayers))
	for _, layer := range resultLayers {
		result[layer] = true
	}

	filled := make(map[string]bool)
	for _, ent := range p.Doc.Entities {
		if !result[ent.Layer()] {
			continue
		}
		if rec, ok := encodeEntity(ent); ok {
			snapshot.Data.Entities = append(snapshot.Data.Entities, rec)
			filled[ent.Layer()] = true
		}
	}
	for _, layer := range resultLayers {
		if filled[layer] {
			snapshot.FilledLayers = append(snapshot.FilledLayers, layer)
		}
	}

	return snapshot
}

// Import 在新打开的图纸上还原快照状态
func Import(doc *beamcad.Document, snapshot *Snapshot) *Project {
	p := &Project{
		Name:    snapshot.Name,
		Doc:     doc,
		Layers:  snapshot.LayerConfig,
		Regions: snapshot.SplitRegions,
		Merged:  snapshot.MergedViewData,
		Labels:  snapshot.Data.Labels,
		Columns: snapshot.Columns,
		Walls:   snapshot.Walls,

		RawBeams: snapshot.Data.RawBeams,
		Segments: snapshot.Data.Segments,
		Mounted:  snapshot.Data.Mounted,
		Beams:    snapshot.Data.Beams,

		Step: snapshot.Step,
	}

	// 结果图层整体替换，避免对同一图纸反复导入产生重复几何
	doc.RemoveLayers(resultLayers...)
	for _, rec := range snapshot.Data.Entities {
		if ent := decodeEntity(rec); ent != nil {
			doc.AddEntities(ent)
		}
	}

	return p
}

// WriteFile 快照落盘（缩进 JSON）
func (s *Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSnapshot 从文件读入快照
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("解析快照 %s: %w", path, err)
	}
	return &snapshot, nil
}
