package analysis

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// clusterRadius 轴线端点间距在该半径内视为同一个视口
const clusterRadius = 5000

// ViewTitle 按编号习惯拆分后的标题，如 "X向梁配筋-1" -> {X向梁配筋, 1}
type ViewTitle struct {
	Prefix string `json:"prefix"`
	Index  int    `json:"index"`
}

// ViewportRegion 一个逻辑视口：一簇轴网的包围盒加标题
type ViewportRegion struct {
	Bounds core.BBox  `json:"bounds"`
	Title  string     `json:"title"`
	Parsed *ViewTitle `json:"parsedInfo,omitempty"`
}

// ClusterViewports 把轴网线按端点邻近关系聚成视口区域
//
// 并查集扫描：任意端点对落在 clusterRadius 内的两条轴线归入同簇，
// 每个连通簇输出一个包围盒，顺序按簇首条线的出现顺序。
func ClusterViewports(axisLines []*entities.Line) []ViewportRegion {
	n := len(axisLines)
	if n == 0 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if linesNear(axisLines[i], axisLines[j], clusterRadius) {
				union(i, j)
			}
		}
	}

	var (
		order   []int
		cluster = make(map[int]*core.BBox)
	)
	for i, l := range axisLines {
		root := find(i)
		box := l.BBox()
		if exist, ok := cluster[root]; ok {
			merged := exist.Union(box)
			cluster[root] = &merged
		} else {
			cluster[root] = &box
			order = append(order, root)
		}
	}

	regions := make([]ViewportRegion, 0, len(order))
	for _, root := range order {
		regions = append(regions, ViewportRegion{Bounds: *cluster[root]})
	}
	return regions
}

// linesNear 两条线段是否有任意一对端点落在 radius 内
func linesNear(a, b *entities.Line, radius float64) bool {
	for _, p := range []core.Point{a.Start, a.End} {
		for _, q := range []core.Point{b.Start, b.End} {
			if p.Distance(q) <= radius {
				return true
			}
		}
	}
	return false
}

// ResolveTitles 为每个区域寻找标题文字并解析编号
//
// 从区域上方开始逐级扩大搜索范围，优先命中者作为标题；
// 配置了标题图层时只在这些图层内找，否则任何文字都算。
// 找不到时赋予合成标题 "BLOCK n"，n 为发现顺序。
func ResolveTitles(regions []ViewportRegion, texts []*entities.Text, titleLayers []string) []ViewportRegion {
	allowed := make(map[string]bool, len(titleLayers))
	for _, l := range titleLayers {
		allowed[l] = true
	}

	resolved := make([]ViewportRegion, len(regions))
	for i, region := range regions {
		resolved[i] = region

		title := searchTitle(region.Bounds, texts, allowed)
		if title == "" {
			// 合成标题不参与编号解析，未命名区域不会被当成重复视口
			resolved[i].Title = fmt.Sprintf("BLOCK %d", i+1)
			continue
		}
		resolved[i].Title = title
		resolved[i].Parsed = ParseTitle(title)
	}
	return resolved
}

// searchTitle 由近及远在区域上方/四周找第一条标题文字
func searchTitle(bounds core.BBox, texts []*entities.Text, allowed map[string]bool) string {
	for _, margin := range []float64{1000, 3000, 6000, 10000} {
		// 上方是标题的惯常位置，向上多放一倍余量
		search := core.BBox{
			Min: core.Point{X: bounds.Min.X - margin, Y: bounds.Min.Y - margin/2},
			Max: core.Point{X: bounds.Max.X + margin, Y: bounds.Max.Y + margin*2},
		}

		for _, text := range texts {
			if len(allowed) > 0 && !allowed[text.Layer()] {
				continue
			}
			if text.Value == "" {
				continue
			}
			if search.Contains(text.Location) {
				return text.Value
			}
		}
	}
	return ""
}

// 末尾编号，兼容半角/全角连接符："X向梁配筋-1"、"屋面层－2"
var reTitleIndex = regexp.MustCompile(`^(.+?)[-－—_]?(\d+)\s*$`)

// ParseTitle 拆分标题的前缀与编号，无编号后缀时返回 nil
func ParseTitle(title string) *ViewTitle {
	match := reTitleIndex.FindStringSubmatch(title)
	if match == nil {
		return nil
	}

	index, err := strconv.Atoi(match[2])
	if err != nil {
		return nil
	}

	return &ViewTitle{Prefix: match[1], Index: index}
}
