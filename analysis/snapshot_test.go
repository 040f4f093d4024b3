package analysis

import (
	"math"
	"path/filepath"
	"testing"
)

// 挂载阶段导出快照，新开图纸导入后继续拓扑归并，
// 结果应与连续执行一致
func TestSnapshot_Resume(t *testing.T) {
	doc, layers := testBeamDoc()
	p := NewProject("快照", doc, layers)

	for _, run := range []func(*Project) (*StageResult, error){
		func(p *Project) (*StageResult, error) { return StageRawBeams(p) },
		StageIntersections,
		StageMountAttributes,
	} {
		result, err := run(p)
		if err != nil {
			t.Fatalf("阶段执行失败: %v", err)
		}
		p.Apply(result)
	}

	snapshot := Export(p)
	if snapshot.Step != StepMount {
		t.Errorf("快照阶段不符: 期望 %d, 得到 %d", StepMount, snapshot.Step)
	}
	if len(snapshot.Data.Mounted) != 1 {
		t.Fatalf("快照挂载段数不符: 得到 %d", len(snapshot.Data.Mounted))
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := snapshot.WriteFile(path); err != nil {
		t.Fatalf("快照写出失败: %v", err)
	}
	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("快照读取失败: %v", err)
	}

	// 模拟重开图纸
	doc2, _ := testBeamDoc()
	p2 := Import(doc2, loaded)

	if p2.Step != StepMount {
		t.Errorf("导入阶段不符: 期望 %d, 得到 %d", StepMount, p2.Step)
	}
	if countLayer(doc2, LayerBeamRaw) != countLayer(doc, LayerBeamRaw) {
		t.Errorf("结果图层实体数不符: 期望 %d, 得到 %d",
			countLayer(doc, LayerBeamRaw), countLayer(doc2, LayerBeamRaw))
	}

	// 两边分别执行拓扑归并，结果几何应一致
	topoA, err := StageTopology(p)
	if err != nil {
		t.Fatalf("连续执行拓扑归并失败: %v", err)
	}
	p.Apply(topoA)

	topoB, err := StageTopology(p2)
	if err != nil {
		t.Fatalf("快照恢复后拓扑归并失败: %v", err)
	}
	p2.Apply(topoB)

	if len(p.Beams) != len(p2.Beams) {
		t.Fatalf("梁数不符: 连续 %d, 恢复 %d", len(p.Beams), len(p2.Beams))
	}
	for i := range p.Beams {
		a, b := p.Beams[i], p2.Beams[i]
		if a.Code != b.Code || a.Width != b.Width || a.Height != b.Height {
			t.Errorf("第 %d 根梁属性不符: %+v vs %+v", i, a, b)
		}
		if math.Abs(a.Length()-b.Length()) > 1e-6 {
			t.Errorf("第 %d 根梁长度不符: %v vs %v", i, a.Length(), b.Length())
		}
	}
}

// 重复导入同一份快照不会在结果图层累积重复几何
func TestSnapshot_ImportIdempotent(t *testing.T) {
	doc, layers := testBeamDoc()
	p := NewProject("重复导入", doc, layers)

	raw, err := StageRawBeams(p)
	if err != nil {
		t.Fatalf("原始生成失败: %v", err)
	}
	p.Apply(raw)

	snapshot := Export(p)

	doc2, _ := testBeamDoc()
	Import(doc2, snapshot)
	first := countLayer(doc2, LayerBeamRaw)
	Import(doc2, snapshot)
	second := countLayer(doc2, LayerBeamRaw)

	if first != second {
		t.Errorf("重复导入实体数变化: %d -> %d", first, second)
	}
	if first != 1 {
		t.Errorf("导入实体数不符: 期望 1, 得到 %d", first)
	}
}
