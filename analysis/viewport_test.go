package analysis

import (
	"testing"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// 端点相距超过聚类半径的两簇轴网分属两个视口
func TestClusterViewports(t *testing.T) {
	lines := []*entities.Line{
		testLine("AXIS", 0, 0, 10000, 0),
		testLine("AXIS", 0, 0, 0, 8000),
		testLine("AXIS", 50000, 0, 60000, 0),
		testLine("AXIS", 50000, 0, 50000, 8000),
	}

	regions := ClusterViewports(lines)
	if len(regions) != 2 {
		t.Fatalf("视口数不符: 期望 2, 得到 %d", len(regions))
	}

	first := regions[0].Bounds
	if first.Min.X != 0 || first.Min.Y != 0 || first.Max.X != 10000 || first.Max.Y != 8000 {
		t.Errorf("首个视口范围不符: 得到 %+v", first)
	}
	if regions[1].Bounds.Min.X != 50000 {
		t.Errorf("第二个视口范围不符: 得到 %+v", regions[1].Bounds)
	}
}

// 端点落在聚类半径内的轴线归入同簇
func TestClusterViewports_Near(t *testing.T) {
	lines := []*entities.Line{
		testLine("AXIS", 0, 0, 10000, 0),
		// 端点与上一条相距 3000，在半径 5000 内
		testLine("AXIS", 13000, 0, 20000, 0),
	}

	if regions := ClusterViewports(lines); len(regions) != 1 {
		t.Errorf("视口数不符: 期望 1, 得到 %d", len(regions))
	}
}

// 标题取区域上方最近的文字，配置了标题图层时其他图层的文字不算
func TestResolveTitles(t *testing.T) {
	regions := []ViewportRegion{
		{Bounds: core.BBox{Max: core.Point{X: 10000, Y: 8000}}},
		{Bounds: core.BBox{
			Min: core.Point{X: 50000},
			Max: core.Point{X: 60000, Y: 8000},
		}},
	}

	title := &entities.Text{
		BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: "TITLE"},
		Location:   core.Point{X: 5000, Y: 8500},
		Value:      "X向梁配筋-1",
	}
	decoy := &entities.Text{
		BaseEntity: entities.BaseEntity{TypeName: "TEXT", LayerName: "NOTE"},
		Location:   core.Point{X: 5000, Y: 8200},
		Value:      "仅供参考",
	}

	resolved := ResolveTitles(regions, []*entities.Text{decoy, title}, []string{"TITLE"})

	if resolved[0].Title != "X向梁配筋-1" {
		t.Errorf("标题不符: 期望 X向梁配筋-1, 得到 %s", resolved[0].Title)
	}
	if resolved[0].Parsed == nil || resolved[0].Parsed.Prefix != "X向梁配筋" || resolved[0].Parsed.Index != 1 {
		t.Errorf("标题解析不符: 得到 %+v", resolved[0].Parsed)
	}

	// 找不到标题的区域用合成标题，且不参与编号解析
	if resolved[1].Title != "BLOCK 2" {
		t.Errorf("合成标题不符: 期望 BLOCK 2, 得到 %s", resolved[1].Title)
	}
	if resolved[1].Parsed != nil {
		t.Errorf("合成标题不应被解析: 得到 %+v", resolved[1].Parsed)
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		title  string
		prefix string
		index  int
	}{
		{"X向梁配筋-1", "X向梁配筋", 1},
		{"屋面层－2", "屋面层", 2},
		{"KL平面3", "KL平面", 3},
		{"三层梁配筋图", "", 0},
	}

	for _, tt := range tests {
		parsed := ParseTitle(tt.title)
		if tt.prefix == "" {
			if parsed != nil {
				t.Errorf("%s 不应解析出编号: 得到 %+v", tt.title, parsed)
			}
			continue
		}
		if parsed == nil {
			t.Errorf("%s 解析失败", tt.title)
			continue
		}
		if parsed.Prefix != tt.prefix || parsed.Index != tt.index {
			t.Errorf("%s 解析不符: 期望 {%s %d}, 得到 %+v", tt.title, tt.prefix, tt.index, parsed)
		}
	}
}
