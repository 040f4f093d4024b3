package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

// Orientation 标注/构件的走向
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationHorizontal
	OrientationVertical
)

func (o Orientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "横向"
	case OrientationVertical:
		return "纵向"
	}
	return "未知"
}

// BeamLabelInfo 一条梁集中标注解析后的结构化信息
type BeamLabelInfo struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`   // 编号，如 KL1
	Span        string      `json:"span"`   // 跨数，如 2、2A
	Width       float64     `json:"width"`  // 截面宽，未知为 0
	Height      float64     `json:"height"` // 截面高，未知为 0
	Text        string      `json:"text"`   // 原始文字
	Location    core.Point  `json:"location"`
	Orientation Orientation `json:"orientation"`
	Layer       string      `json:"layer"`
	NeedConfirm bool        `json:"needConfirm"` // 缺宽高且无同编号可补，需人工确认
}

// 标注文字的四级解析模式，从富到简逐级回退。
// 各级的匹配形状是下游依赖的契约，不要合并成一条正则。
var (
	// 1. 完整：编号(跨数) 宽x高，如 "KL1(2) 250x500"
	reLabelFull = regexp.MustCompile(`^\s*([A-Za-z]{1,4}\d+[A-Za-z]?)\s*[(（](\d+[A-Za-z]?)[)）]\s*(\d{2,4})\s*[xX×](\d{2,4})`)
	// 2. 仅截面："250x500"
	reLabelSize = regexp.MustCompile(`(\d{2,4})\s*[xX×](\d{2,4})`)
	// 3. 编号(跨数)："KL1(2)"、"L3(2A)"
	reLabelCodeSpan = regexp.MustCompile(`^\s*([A-Za-z]{1,4}\d+[A-Za-z]?)\s*[(（](\d+[A-Za-z]?)[)）]`)
	// 4. 仅编号："KL1"
	reLabelCode = regexp.MustCompile(`^\s*([A-Za-z]{1,4}\d+[A-Za-z]?)`)
)

// ParseBeamLabel 解析梁标注文字，完全无法识别时返回 false
func ParseBeamLabel(text string) (info BeamLabelInfo, ok bool) {
	info.Text = text

	if m := reLabelFull.FindStringSubmatch(text); m != nil {
		info.Code = m[1]
		info.Span = m[2]
		info.Width, _ = strconv.ParseFloat(m[3], 64)
		info.Height, _ = strconv.ParseFloat(m[4], 64)
		return info, true
	}

	if m := reLabelCodeSpan.FindStringSubmatch(text); m != nil {
		info.Code = m[1]
		info.Span = m[2]
		// 跨数之后可能仍挂着截面尺寸
		if s := reLabelSize.FindStringSubmatch(text); s != nil {
			info.Width, _ = strconv.ParseFloat(s[1], 64)
			info.Height, _ = strconv.ParseFloat(s[2], 64)
		}
		return info, true
	}

	if m := reLabelCode.FindStringSubmatch(text); m != nil {
		info.Code = m[1]
		if s := reLabelSize.FindStringSubmatch(text); s != nil {
			info.Width, _ = strconv.ParseFloat(s[1], 64)
			info.Height, _ = strconv.ParseFloat(s[2], 64)
		}
		return info, true
	}

	if m := reLabelSize.FindStringSubmatch(text); m != nil {
		info.Width, _ = strconv.ParseFloat(m[1], 64)
		info.Height, _ = strconv.ParseFloat(m[2], 64)
		return info, true
	}

	return info, false
}

// ParseSizeHints 从一批标注文字中提取出现过的截面宽集合（宽度提示）
func ParseSizeHints(texts []*entities.Text) []float64 {
	seen := make(map[float64]bool)
	var widths []float64
	for _, text := range texts {
		m := reLabelSize.FindStringSubmatch(text.Value)
		if m == nil {
			continue
		}
		w, _ := strconv.ParseFloat(m[1], 64)
		if w > 0 && !seen[w] {
			seen[w] = true
			widths = append(widths, w)
		}
	}
	return widths
}

// 图层命名中的走向提示关键词
var (
	horizontalHints = []string{"横", "水平", "X向", "_H", "-H"}
	verticalHints   = []string{"纵", "竖", "垂直", "Y向", "_V", "-V"}
)

// ClassifyOrientation 判定标注走向，优先级固定：
// 图层命名提示 > 引线几何走向 > 文字自身旋转角。
// 该顺序是可测试的契约，调整需同步更新测试。
func ClassifyOrientation(layerName string, leader *entities.Line, rotation float64) Orientation {
	upper := strings.ToUpper(layerName)
	for _, hint := range horizontalHints {
		if strings.Contains(upper, strings.ToUpper(hint)) {
			return OrientationHorizontal
		}
	}
	for _, hint := range verticalHints {
		if strings.Contains(upper, strings.ToUpper(hint)) {
			return OrientationVertical
		}
	}

	if leader != nil {
		d := leader.End.Sub(leader.Start)
		if d.Length() > 1e-9 {
			if math.Abs(d.X) >= math.Abs(d.Y) {
				return OrientationHorizontal
			}
			return OrientationVertical
		}
	}

	angle := math.Mod(rotation, 180)
	if angle < 0 {
		angle += 180
	}
	if angle > 45 && angle < 135 {
		return OrientationVertical
	}
	return OrientationHorizontal
}

// BackfillLabels 用同编号的标注补齐缺失的截面尺寸
// 找不到补齐来源的标注置 NeedConfirm，留给人工复核而不是丢弃
func BackfillLabels(labels []BeamLabelInfo) []BeamLabelInfo {
	type size struct {
		width, height float64
	}
	donors := make(map[string]size)
	for _, label := range labels {
		if label.Code != "" && label.Width > 0 && label.Height > 0 {
			if _, ok := donors[label.Code]; !ok {
				donors[label.Code] = size{width: label.Width, height: label.Height}
			}
		}
	}

	out := make([]BeamLabelInfo, len(labels))
	for i, label := range labels {
		out[i] = label
		if label.Width > 0 && label.Height > 0 {
			continue
		}
		if donor, ok := donors[label.Code]; ok && label.Code != "" {
			out[i].Width = donor.width
			out[i].Height = donor.height
		} else {
			out[i].NeedConfirm = true
		}
	}
	return out
}
