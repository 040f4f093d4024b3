package beamcad

import (
	"strings"
	"testing"

	"github.com/zooyer/beamcad/entities"
)

const testDXF = `0
SECTION
2
TABLES
0
TABLE
2
LAYER
0
LAYER
2
AXIS
0
LAYER
2
BEAM
0
ENDTAB
0
ENDSEC
0
SECTION
2
BLOCKS
0
BLOCK
2
B1
10
100
20
50
0
LINE
8
0
10
100
20
50
11
160
21
50
0
LINE
8
0
10
100
20
50
11
100
21
110
0
ENDBLK
0
ENDSEC
0
SECTION
2
ENTITIES
0
INSERT
2
B1
8
BEAM
10
500
20
500
0
LINE
8
AXIS
10
0
20
0
11
1000
21
0
0
ENDSEC
0
EOF
`

func TestLoad(t *testing.T) {
	doc, err := Load(strings.NewReader(testDXF))
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	// LAYER 表
	if len(doc.Layers) != 2 || doc.Layers[0] != "AXIS" || doc.Layers[1] != "BEAM" {
		t.Errorf("图层表不符: 得到 %v", doc.Layers)
	}

	// 块定义：基点与块内连续两条线段都要读到
	block, ok := doc.Blocks["B1"]
	if !ok {
		t.Fatal("块 B1 未解析")
	}
	if block.BasePoint.X != 100 || block.BasePoint.Y != 50 {
		t.Errorf("块基点不符: 期望 (100,50), 得到 (%v,%v)", block.BasePoint.X, block.BasePoint.Y)
	}
	if len(block.Entities) != 2 {
		t.Fatalf("块内实体数不符: 期望 2, 得到 %d", len(block.Entities))
	}
	line, ok := block.Entities[0].(*entities.Line)
	if !ok {
		t.Fatalf("块内实体类型不符: %T", block.Entities[0])
	}
	if line.End.X != 160 || line.End.Y != 50 {
		t.Errorf("块内线段不符: 得到 (%v,%v)", line.End.X, line.End.Y)
	}

	// 模型空间实体
	if len(doc.Entities) != 2 {
		t.Fatalf("实体数不符: 期望 2, 得到 %d", len(doc.Entities))
	}
	ins, ok := doc.Entities[0].(*entities.Insert)
	if !ok {
		t.Fatalf("首个实体类型不符: %T", doc.Entities[0])
	}
	if ins.BlockName != "B1" || ins.InsertionPoint.X != 500 {
		t.Errorf("块引用不符: %s (%v,%v)", ins.BlockName, ins.InsertionPoint.X, ins.InsertionPoint.Y)
	}
}

func TestDocument_Layers(t *testing.T) {
	doc := &Document{Blocks: map[string]*Block{}}

	a := &entities.Line{BaseEntity: entities.BaseEntity{TypeName: "LINE", LayerName: "A"}}
	b := &entities.Line{BaseEntity: entities.BaseEntity{TypeName: "LINE", LayerName: "B"}}
	doc.AddEntities(a, b, a)

	if len(doc.Entities) != 3 {
		t.Fatalf("实体数不符: 期望 3, 得到 %d", len(doc.Entities))
	}
	// 图层登记去重
	if len(doc.Layers) != 2 {
		t.Errorf("图层数不符: 期望 2, 得到 %v", doc.Layers)
	}

	doc.RemoveLayers("A")
	if len(doc.Entities) != 1 || doc.Entities[0].Layer() != "B" {
		t.Errorf("删除图层后实体不符: 得到 %d 个", len(doc.Entities))
	}
}
