package analysis

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/zooyer/golib/xos"

	"github.com/zooyer/beamcad/utils"
)

// 区域外实例的兜底分组名
const unassignedRegion = "未分区"

// ReportRow 报表一行：一根最终梁实例的量取结果
type ReportRow struct {
	ID     string  `json:"id"`
	Code   string  `json:"code"`
	Length float64 `json:"length"` // mm
	Width  float64 `json:"width"`  // mm
	Height float64 `json:"height"` // mm
	Volume float64 `json:"volume"` // mm3
}

// RegionReport 按视口区域分组的小计
type RegionReport struct {
	Title  string      `json:"title"`
	Rows   []ReportRow `json:"rows"`
	Volume float64     `json:"volume"` // m3
}

// Report 阶段5产物：纯报表，不产生任何新几何
type Report struct {
	Project string         `json:"project"`
	Regions []RegionReport `json:"regions"`
	Volume  float64        `json:"volume"` // 工程总量 m3
}

// BuildReport 阶段5：按所在区域汇总最终梁实例
// 实例归属由其中点落在哪个区域包围盒决定，落不进任何区域的归入"未分区"
func BuildReport(p *Project) (*Report, error) {
	if len(p.Beams) == 0 {
		return nil, fmt.Errorf("%w: 请先执行拓扑归并", ErrStageOrder)
	}

	var (
		report = &Report{Project: p.Name}
		index  = make(map[string]int)
	)

	group := func(title string) *RegionReport {
		if i, ok := index[title]; ok {
			return &report.Regions[i]
		}
		report.Regions = append(report.Regions, RegionReport{Title: title})
		index[title] = len(report.Regions) - 1
		return &report.Regions[len(report.Regions)-1]
	}

	// 区域顺序与聚类发现顺序一致
	for _, region := range p.Regions {
		group(region.Title)
	}

	for _, beam := range p.Beams {
		title := unassignedRegion
		for _, region := range p.Regions {
			if utils.InBox(region.Bounds, beam.Center()) {
				title = region.Title
				break
			}
		}

		r := group(title)
		r.Rows = append(r.Rows, ReportRow{
			ID:     beam.ID,
			Code:   beam.Code,
			Length: beam.Length(),
			Width:  beam.Width,
			Height: beam.Height,
			Volume: beam.Volume(),
		})
	}

	// 小计与总计换算为 m3
	for i := range report.Regions {
		var total float64
		for _, row := range report.Regions[i].Rows {
			total += row.Volume
		}
		report.Regions[i].Volume = total / 1e9
		report.Volume += report.Regions[i].Volume
	}

	return report, nil
}

var (
	reportTitleStyle  = lipgloss.NewStyle().Bold(true)
	reportHeaderStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	reportCellStyle   = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
)

// Render 渲染分页文本报表，pageSize 为每页行数（<=0 不分页）
func (r *Report) Render(pageSize int) string {
	var sb strings.Builder

	for _, region := range r.Regions {
		if len(region.Rows) == 0 {
			continue
		}

		sb.WriteString(reportTitleStyle.Render(fmt.Sprintf("【%s】", region.Title)))
		sb.WriteString("\n")

		pages := paginate(region.Rows, pageSize)
		for n, page := range pages {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return reportHeaderStyle
					}
					return reportCellStyle
				}).
				Headers("ID", "编号", "长(mm)", "宽(mm)", "高(mm)", "体积(mm3)")

			for _, row := range page {
				t.Row(
					shortID(row.ID),
					row.Code,
					fmt.Sprintf("%.0f", row.Length),
					fmt.Sprintf("%.0f", row.Width),
					fmt.Sprintf("%.0f", row.Height),
					fmt.Sprintf("%.0f", row.Volume),
				)
			}

			sb.WriteString(t.String())
			sb.WriteString("\n")
			if len(pages) > 1 {
				sb.WriteString(fmt.Sprintf("第 %d/%d 页\n", n+1, len(pages)))
			}
		}

		sb.WriteString(fmt.Sprintf("区域小计: %.3f m3\n\n", region.Volume))
	}

	sb.WriteString(reportTitleStyle.Render(fmt.Sprintf("工程总量: %.3f m3", r.Volume)))
	sb.WriteString("\n")
	return sb.String()
}

// paginate 按页切分
func paginate(rows []ReportRow, pageSize int) [][]ReportRow {
	if pageSize <= 0 || len(rows) <= pageSize {
		return [][]ReportRow{rows}
	}
	var pages [][]ReportRow
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}
		pages = append(pages, rows[start:end])
	}
	return pages
}

// shortID 表格里只展示 ID 前 8 位
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WriteCSV 逐行追加写出 CSV 报表
func (r *Report) WriteCSV(filename string) error {
	const header = "区域,ID,编号,长度,宽度,高度,体积\n"
	if err := os.WriteFile(filename, []byte(header), 0644); err != nil {
		return err
	}

	for _, region := range r.Regions {
		for _, row := range region.Rows {
			line := fmt.Sprintf("%s,%s,%s,%.0f,%.0f,%.0f,%.0f\n",
				region.Title, row.ID, row.Code,
				row.Length, row.Width, row.Height, row.Volume,
			)
			if err := xos.AppendFile(filename, []byte(line), 0644); err != nil {
				return err
			}
		}

		line := fmt.Sprintf("%s,小计,,,,,%.3f\n", region.Title, region.Volume)
		if err := xos.AppendFile(filename, []byte(line), 0644); err != nil {
			return err
		}
	}

	total := fmt.Sprintf("总计,,,,,,%.3f\n", r.Volume)
	return xos.AppendFile(filename, []byte(total), 0644)
}
