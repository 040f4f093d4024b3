package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ncruces/zenity"
	"github.com/spf13/cobra"
	"github.com/zooyer/golib/xos"

	"github.com/zooyer/beamcad"
	"github.com/zooyer/beamcad/analysis"
	"github.com/zooyer/beamcad/config"
)

var (
	flagVerbose  bool
	flagConfig   string
	flagCSV      string
	flagSnapshot string
	flagPages    int

	logger *log.Logger
)

func newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
}

// pickFile 命令行没给文件时弹出选择框（双击/拖拽使用场景）
func pickFile() (string, error) {
	return zenity.SelectFile(
		zenity.Title("选择 DXF 图纸"),
		zenity.FileFilters{
			{Name: "DXF 图纸", Patterns: []string{"*.dxf"}},
		},
	)
}

// resolveInput 确定输入图纸路径
func resolveInput(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return pickFile()
}

// loadProject 打开图纸并装配图层配置
func loadProject(path string) (*analysis.Project, error) {
	configPath := flagConfig
	if configPath == "" {
		// 默认找图纸旁边的 layers.toml
		configPath = filepath.Join(filepath.Dir(path), "layers.toml")
	}

	layers, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取图层配置失败（用 --config 指定）: %w", err)
	}

	doc, err := beamcad.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开图纸 %s: %w", path, err)
	}

	logger.Debug("图纸加载完成", "实体", len(doc.Entities), "图层", len(doc.Layers), "块", len(doc.Blocks))

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return analysis.NewProject(name, doc, layers), nil
}

// prepare 视口聚类 + 重复视图合并（合并缺数据不阻塞后续阶段）
func prepare(p *analysis.Project) error {
	regions, err := analysis.ResolveRegions(p)
	if err != nil {
		return err
	}
	p.Regions = regions
	for _, region := range regions {
		logger.Info("视口", "标题", region.Title,
			"范围", fmt.Sprintf("(%.0f,%.0f)-(%.0f,%.0f)",
				region.Bounds.Min.X, region.Bounds.Min.Y,
				region.Bounds.Max.X, region.Bounds.Max.Y))
	}

	merge, err := analysis.MergeViews(p)
	if err != nil {
		if errors.Is(err, analysis.ErrNoData) {
			logger.Warn("跳过视图合并", "原因", err)
			return nil
		}
		return err
	}
	p.ApplyMerge(merge)
	logger.Info(merge.Message)
	return nil
}

// runStages 依次执行 fromStep 之后的梁流水线阶段
func runStages(p *analysis.Project, fromStep int) error {
	type stage struct {
		step int
		name string
		run  func(*analysis.Project) (*analysis.StageResult, error)
	}

	stages := []stage{
		{analysis.StepRaw, "原始生成", func(p *analysis.Project) (*analysis.StageResult, error) {
			return analysis.StageRawBeams(p)
		}},
		{analysis.StepSplit, "交点切分", analysis.StageIntersections},
		{analysis.StepMount, "属性挂载", analysis.StageMountAttributes},
		{analysis.StepTopology, "拓扑归并", analysis.StageTopology},
	}

	for _, s := range stages {
		if s.step <= fromStep {
			continue
		}
		result, err := s.run(p)
		if err != nil {
			return fmt.Errorf("阶段[%s]: %w", s.name, err)
		}
		p.Apply(result)
		logger.Info(s.name, "结果", result.Message)
	}
	return nil
}

// finish 输出报表、CSV 与快照
func finish(p *analysis.Project) error {
	report, err := analysis.BuildReport(p)
	if err != nil {
		return err
	}
	fmt.Println(report.Render(flagPages))

	if flagCSV != "" {
		if err := report.WriteCSV(flagCSV); err != nil {
			return fmt.Errorf("写出 CSV: %w", err)
		}
		logger.Info("CSV 已写出", "文件", flagCSV)
	}

	if flagSnapshot != "" {
		if err := analysis.Export(p).WriteFile(flagSnapshot); err != nil {
			return fmt.Errorf("写出快照: %w", err)
		}
		logger.Info("快照已写出", "文件", flagSnapshot)
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [图纸.dxf]",
		Short: "完整执行视口聚类、视图合并与五阶段梁流水线",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInput(args)
			if err != nil {
				return err
			}

			p, err := loadProject(path)
			if err != nil {
				return err
			}

			if err := prepare(p); err != nil {
				return err
			}
			if err := runStages(p, analysis.StepNone); err != nil {
				return err
			}
			return finish(p)
		},
	}

	cmd.Flags().StringVar(&flagCSV, "csv", "", "同时写出 CSV 报表")
	cmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "分析完成后导出快照 JSON")
	cmd.Flags().IntVar(&flagPages, "pages", 20, "报表每页行数（0 不分页）")
	return cmd
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions [图纸.dxf]",
		Short: "只做轴网聚类并列出视口区域",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInput(args)
			if err != nil {
				return err
			}

			p, err := loadProject(path)
			if err != nil {
				return err
			}

			regions, err := analysis.ResolveRegions(p)
			if err != nil {
				return err
			}

			for i, region := range regions {
				index := "-"
				if region.Parsed != nil {
					index = fmt.Sprintf("%s #%d", region.Parsed.Prefix, region.Parsed.Index)
				}
				fmt.Printf("[%02d] %-24s %s RECTANG %.0f,%.0f %.0f,%.0f\n",
					i+1, region.Title, index,
					region.Bounds.Min.X, region.Bounds.Min.Y,
					region.Bounds.Max.X, region.Bounds.Max.Y,
				)
			}
			return nil
		},
	}
}

func newResumeCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "resume [图纸.dxf]",
		Short: "从导出的快照继续执行剩余阶段",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInput(args)
			if err != nil {
				return err
			}

			snapshot, err := analysis.ReadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			doc, err := beamcad.Open(path)
			if err != nil {
				return fmt.Errorf("打开图纸 %s: %w", path, err)
			}

			p := analysis.Import(doc, snapshot)
			logger.Info("快照已导入", "名称", snapshot.Name, "阶段", snapshot.Step)

			if err := runStages(p, snapshot.Step); err != nil {
				return err
			}
			return finish(p)
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "快照 JSON 路径")
	cmd.Flags().StringVar(&flagCSV, "csv", "", "同时写出 CSV 报表")
	cmd.Flags().IntVar(&flagPages, "pages", 20, "报表每页行数（0 不分页）")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func main() {
	// 双击运行时保持控制台窗口
	defer xos.PauseExit()

	root := &cobra.Command{
		Use:          "beamcad",
		Short:        "从 DXF 结构平面图自动识别梁墙柱并算量",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(flagVerbose)
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "输出调试日志")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "图层配置 TOML 路径")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRegionsCmd())
	root.AddCommand(newResumeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
