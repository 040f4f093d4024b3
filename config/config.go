// Package config 维护图层语义配置：哪些图层名承担哪种结构角色。
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Role 图层的结构语义角色
type Role string

const (
	RoleAxis          Role = "AXIS"               // 轴网
	RoleAxisOther     Role = "AXIS_OTHER"         // 其他轴线（次轴网）
	RoleWall          Role = "WALL"               // 墙线
	RoleColumn        Role = "COLUMN"             // 柱
	RoleBeam          Role = "BEAM"               // 梁线
	RoleBeamLabel     Role = "BEAM_LABEL"         // 梁集中标注
	RoleBeamSituLabel Role = "BEAM_IN_SITU_LABEL" // 梁原位标注
	RoleViewportTitle Role = "VIEWPORT_TITLE"     // 视口标题
)

// Layers 角色到图层名列表的映射
type Layers map[Role][]string

// NotConfiguredError 某个角色未配置任何图层
type NotConfiguredError struct {
	Role Role
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("图层角色 %s 未配置", e.Role)
}

// Get 返回角色对应的图层列表，未配置时返回 nil
func (l Layers) Get(role Role) []string {
	return l[role]
}

// Require 返回角色对应的图层列表，未配置时返回 NotConfiguredError
func (l Layers) Require(role Role) ([]string, error) {
	layers := l[role]
	if len(layers) == 0 {
		return nil, &NotConfiguredError{Role: role}
	}
	return layers, nil
}

// Has 判断角色是否配置了至少一个图层
func (l Layers) Has(role Role) bool {
	return len(l[role]) > 0
}

// fileLayout 对应 TOML 配置文件的 [layers] 段
type fileLayout struct {
	Layers map[string][]string `toml:"layers"`
}

// LoadFile 从 TOML 文件读取图层配置
//
// 示例:
//
//	[layers]
//	AXIS = ["AXIS", "DOTE"]
//	BEAM = ["BEAM_LINE"]
func LoadFile(path string) (Layers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layout fileLayout
	if err := toml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("解析配置 %s: %w", path, err)
	}

	layers := make(Layers, len(layout.Layers))
	for role, names := range layout.Layers {
		layers[Role(role)] = names
	}
	return layers, nil
}
