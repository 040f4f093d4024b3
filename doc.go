package beamcad

import (
	"io"
	"os"
	"strings"

	"github.com/zooyer/beamcad/core"
	"github.com/zooyer/beamcad/entities"
)

type DimStyle struct {
	Name      string
	Precision int     // 对应组码 271 DIMDEC，显示的小数位数
	ExLimit   float64 // 对应组码 44 DIMEXE，标注线超出延伸线的长度
	Scale     float64 // 对应组码 40 DIMSCALE，全局比例，影响所有标注特征)
}

type Block struct {
	Name      string
	BasePoint core.Point // 组码 10/20，块的基点
	Entities  []entities.Entity
}

type Document struct {
	Blocks    map[string]*Block
	Entities  []entities.Entity
	Layers    []string // LAYER 表中声明的图层名，按出现顺序
	DimStyles map[string]*DimStyle
}

func (d *Document) parseBlocks(scanner *core.Scanner) {
	var (
		currentBlock *Block
		pending      bool // LastTag 已经停在一个未处理的 0 组码上
	)
	for pending || scanner.Next() {
		pending = false
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "ENDSEC" {
			break
		}

		switch {
		case tag.Code == 0 && strings.ToUpper(tag.Value) == "BLOCK":
			currentBlock = &Block{Entities: []entities.Entity{}}
			// 块头：名称与基点，读到下一个 0 组码停
			for scanner.Next() {
				t := scanner.LastTag
				if t.Code == 0 {
					pending = true
					break
				}
				switch t.Code {
				case 2:
					currentBlock.Name = strings.ToUpper(t.AsString())
				case 10:
					currentBlock.BasePoint.X = t.AsFloat()
				case 20:
					currentBlock.BasePoint.Y = t.AsFloat()
				}
			}
			d.Blocks[currentBlock.Name] = currentBlock

		case currentBlock != nil && tag.Code == 0 && strings.ToUpper(tag.Value) != "ENDBLK":
			if ent := entities.CreateEntity(tag.Value); ent != nil {
				ent.Parse(scanner)
				currentBlock.Entities = append(currentBlock.Entities, ent)
				// Parse 返回时停在下一个 0 组码上
				pending = true
			}
		}
	}
}

func (d *Document) parseEntities(scanner *core.Scanner) {
	for {
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "ENDSEC" {
			break
		}
		if tag.Code == 0 {
			ent := entities.CreateEntity(tag.Value)
			if ent != nil {
				ent.Parse(scanner)
				d.Entities = append(d.Entities, ent)
				continue
			}
		}
		if !scanner.Next() {
			break
		}
	}
}

func (d *Document) parseTables(scanner *core.Scanner) {
	for scanner.Next() {
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "ENDSEC" {
			break
		}
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "TABLE" {
			scanner.Next()
			tableName := strings.ToUpper(scanner.LastTag.Value)
			switch tableName {
			case "DIMSTYLE":
				d.parseDimStyles(scanner)
			case "LAYER":
				d.parseLayers(scanner)
			}
		}
	}
}

func (d *Document) parseLayers(scanner *core.Scanner) {
	var inLayer bool
	for scanner.Next() {
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "ENDTAB" {
			break
		}
		if tag.Code == 0 {
			inLayer = strings.ToUpper(tag.Value) == "LAYER"
			continue
		}
		if inLayer && tag.Code == 2 {
			d.Layers = append(d.Layers, tag.AsString())
			inLayer = false
		}
	}
}

func (d *Document) parseDimStyles(scanner *core.Scanner) {
	var currentStyle *DimStyle
	for {
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "ENDTAB" {
			break
		}

		if tag.Code == 0 && strings.ToUpper(tag.Value) == "DIMSTYLE" {
			currentStyle = &DimStyle{
				Precision: 0,
				ExLimit:   0.0,
				Scale:     1.0, // 默认为 1.0，防止乘法归零
			}

			for scanner.Next() {
				t := scanner.LastTag
				if t.Code == 0 {
					break
				}
				switch t.Code {
				case 2: // 样式名称
					currentStyle.Name = strings.ToUpper(t.Value)
				case 271: // 精度
					currentStyle.Precision = t.AsInt()
				case 44: // 标注线超出延伸线长度 (DIMEXE)
					currentStyle.ExLimit = t.AsFloat()
				case 40: // 全局标注比例 (DIMSCALE)
					currentStyle.Scale = t.AsFloat()
				}
			}

			if currentStyle.Name != "" {
				d.DimStyles[currentStyle.Name] = currentStyle
			}

			if scanner.LastTag.Code == 0 && strings.ToUpper(scanner.LastTag.Value) == "DIMSTYLE" {
				continue
			}
		}

		if !scanner.Next() {
			break
		}
	}
}

// AddEntities 追加实体并登记新图层（用于安装阶段结果）
func (d *Document) AddEntities(ents ...entities.Entity) {
	for _, ent := range ents {
		d.Entities = append(d.Entities, ent)
		d.registerLayer(ent.Layer())
	}
}

// RemoveLayers 删除指定图层上的全部实体（结果图层的替换语义）
func (d *Document) RemoveLayers(layers ...string) {
	if len(layers) == 0 {
		return
	}
	drop := make(map[string]bool, len(layers))
	for _, l := range layers {
		drop[l] = true
	}
	kept := make([]entities.Entity, 0, len(d.Entities))
	for _, ent := range d.Entities {
		if !drop[ent.Layer()] {
			kept = append(kept, ent)
		}
	}
	d.Entities = kept
}

func (d *Document) registerLayer(name string) {
	for _, l := range d.Layers {
		if l == name {
			return
		}
	}
	d.Layers = append(d.Layers, name)
}

func Open(filename string) (doc *Document, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return
	}

	defer func() {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}()

	return Load(file)
}

func Load(reader io.Reader) (doc *Document, err error) {
	var (
		scanner  = core.NewScanner(reader)
		document = &Document{
			Blocks:    make(map[string]*Block),
			Entities:  make([]entities.Entity, 0, 1024),
			DimStyles: make(map[string]*DimStyle),
		}
	)

	for scanner.Next() {
		tag := scanner.LastTag
		if tag.Code == 0 && strings.ToUpper(tag.Value) == "SECTION" {
			if !scanner.Next() {
				break
			}
			sectionName := strings.ToUpper(scanner.LastTag.Value)
			switch sectionName {
			case "TABLES":
				document.parseTables(scanner)
			case "BLOCKS":
				document.parseBlocks(scanner)
			case "ENTITIES":
				document.parseEntities(scanner)
			}
		}
	}

	return document, scanner.Err()
}
