package analysis

import (
	"strings"

	"github.com/zooyer/beamcad"
	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
	"github.com/zooyer/beamcad/utils"
)

// identityFrame 根级累积变换：无缩放、无旋转、原点平移
func identityFrame() *entities.Insert {
	return &entities.Insert{
		Scale: core.Point{X: 1, Y: 1, Z: 1},
	}
}

// frameScale 累积缩放的代表值（按 X 分量绝对值，图纸均为等比缩放）
func frameScale(frame *entities.Insert) float64 {
	s := frame.Scale.X
	if s < 0 {
		s = -s
	}
	return s
}

// FlattenLayers 展开整张图纸，返回落在目标图层上的实体（世界坐标）
//
// 递归下钻每一个块引用，变换按 缩放 -> 旋转 -> 平移 逐级叠加；
// 块内容先扣除块基点再进入本级实例坐标系，保证围绕任意原点绘制的
// 块内容落在插入点处。子实体图层为 "0" 时继承块引用所在图层。
// 输出顺序与深度优先遍历一致。
func FlattenLayers(doc *beamcad.Document, layers []string) []entities.Entity {
	want := make(map[string]bool, len(layers))
	for _, l := range layers {
		want[l] = true
	}

	var (
		out     []entities.Entity
		visited = make(map[string]bool) // 当前递归路径上的块名，防止自引用
	)

	var walk func(ents []entities.Entity, frame *entities.Insert, base core.Point, parentLayer string)
	walk = func(ents []entities.Entity, frame *entities.Insert, base core.Point, parentLayer string) {
		for _, ent := range ents {
			layer := ent.Layer()
			if layer == "0" && parentLayer != "" {
				layer = parentLayer
			}

			if want[layer] {
				if world := transformEntity(ent, frame, base, layer); world != nil {
					out = append(out, world)
				}
			}

			ins, ok := ent.(*entities.Insert)
			if !ok {
				continue
			}

			// 块引用携带的属性文字随引用一起输出
			for _, attr := range ins.Attributes {
				attrLayer := attr.Layer()
				if attrLayer == "" || attrLayer == "0" {
					attrLayer = layer
				}
				if want[attrLayer] {
					if world := transformEntity(attr, frame, base, attrLayer); world != nil {
						out = append(out, world)
					}
				}
			}

			name := strings.ToUpper(ins.BlockName)
			block, exists := doc.Blocks[name]
			if !exists || visited[name] {
				// 缺失或自引用的块当作空内容跳过
				continue
			}

			visited[name] = true
			for _, virtual := range expandArray(ins, base) {
				child := utils.CombineInserts(frame, virtual)
				walk(block.Entities, child, block.BasePoint, layer)
			}
			visited[name] = false
		}
	}

	walk(doc.Entities, identityFrame(), core.Point{}, "")
	return out
}

// expandArray 将 MINSERT 展开为 rows x columns 个虚拟实例
// 网格偏移随实例旋转；普通 INSERT 即 1x1
func expandArray(ins *entities.Insert, parentBase core.Point) []*entities.Insert {
	var (
		cols = ins.Columns
		rows = ins.Rows
	)
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	// 插入点本身也在父块坐标系内，需要扣除父块基点
	local := ins.InsertionPoint.Sub(parentBase)

	instances := make([]*entities.Insert, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			offset := core.Point{
				X: float64(c) * ins.ColumnSpacing,
				Y: float64(r) * ins.RowSpacing,
			}.Rotate(ins.Rotation)

			instances = append(instances, &entities.Insert{
				BlockName:      ins.BlockName,
				InsertionPoint: local.Add(offset),
				Scale:          ins.Scale,
				Rotation:       ins.Rotation,
			})
		}
	}
	return instances
}

// transformEntity 生成实体在世界坐标下的副本，原实体不被修改
// 点坐标做完整变换，角度字段仅叠加累积旋转
func transformEntity(ent entities.Entity, frame *entities.Insert, base core.Point, layer string) entities.Entity {
	apply := func(p core.Point) core.Point {
		return utils.TransformPoint(p.Sub(base), frame)
	}

	switch e := ent.(type) {
	case *entities.Line:
		cp := *e
		cp.LayerName = layer
		cp.Start = apply(e.Start)
		cp.End = apply(e.End)
		return &cp

	case *entities.LWPolyline:
		cp := *e
		cp.LayerName = layer
		cp.Vertices = make([]core.Point, len(e.Vertices))
		for i, v := range e.Vertices {
			cp.Vertices[i] = apply(v)
		}
		return &cp

	case *entities.Circle:
		cp := *e
		cp.LayerName = layer
		cp.Center = apply(e.Center)
		cp.Radius = e.Radius * frameScale(frame)
		return &cp

	case *entities.Arc:
		cp := *e
		cp.LayerName = layer
		cp.Center = apply(e.Center)
		cp.Radius = e.Radius * frameScale(frame)
		cp.StartAngle = e.StartAngle + frame.Rotation
		cp.EndAngle = e.EndAngle + frame.Rotation
		return &cp

	case *entities.Text:
		cp := *e
		cp.LayerName = layer
		cp.Location = apply(e.Location)
		cp.Rotation = e.Rotation + frame.Rotation
		cp.Height = e.Height * frameScale(frame)
		return &cp

	case *entities.Attrib:
		cp := *e
		cp.LayerName = layer
		cp.Location = apply(e.Location)
		return &cp

	case *entities.Dimension:
		cp := *e
		cp.LayerName = layer
		cp.DefPoint = apply(e.DefPoint)
		cp.TextMidPoint = apply(e.TextMidPoint)
		cp.MeasureStart = apply(e.MeasureStart)
		cp.MeasureEnd = apply(e.MeasureEnd)
		cp.Angle = e.Angle + frame.Rotation
		cp.ActualMeasurement = e.ActualMeasurement * frameScale(frame)
		return &cp

	case *entities.Insert:
		cp := *e
		cp.LayerName = layer
		cp.InsertionPoint = apply(e.InsertionPoint)
		cp.Rotation = e.Rotation + frame.Rotation
		cp.Scale = core.Point{
			X: e.Scale.X * frame.Scale.X,
			Y: e.Scale.Y * frame.Scale.Y,
			Z: e.Scale.Z * frame.Scale.Z,
		}
		return &cp
	}

	return nil
}
