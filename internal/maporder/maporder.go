// Package maporder holds the fixed ordering of race maps used to resolve crawl
// triggers and to partition report pages.
package maporder

import (
	"fmt"

	"github.com/antzucaro/matchr"
)

// Unknown is the ordinal of a map that is not in the catalogue.
const Unknown = -1

var official = []string{
	"绿色山谷", "黄昏小镇", "风车农场", "酋长部落", "钟楼魅影", "XTORM乐园", "城堡的冬天",
	"小赛车场", "火山", "长城", "A519公路", "恐龙乐园★", "藏宝海湾★", "月亮城堡★",
	"西部矿洞", "快乐农场", "海上大桥", "山谷要塞", "大赛车场", "U型山谷", "秋名山-下",
	"秋名山-上", "A1港口", "宇宙大帝", "精灵传说", "遥望迪拜", "沉默都市", "香港",
	"迷失沙漠", "雪邦", "决战山脊", "好运北京", "ZIC", "英伦秋色", "太空堡垒",
	"星际之门", "Intel乐园", "蒙特卡罗", "马尼拉", "星球大战", "飘渺之旅", "迷失森林",
	"迷宫", "酋长部落II", "雪域冰川", "海底世界", "楼兰古道", "吉祥万里", "龙珠蛇道",
	"上海世博", "加泰罗尼亚", "巴林", "大大乐园", "快乐圣诞", "穿山越岭", "空中城堡",
	"怪魔禁地", "旋云圣殿", "风车农场2", "太空驿站", "极限矿山", "蒸汽工厂", "29",
	"小柔的N乐园", "小柔的泰姬陵",
}

var officialCatalogue = MustCatalogue(official)

// Official returns the catalogue in the order maps are played in a full season.
func Official() Catalogue {
	return officialCatalogue
}

// Catalogue is an immutable ordered list of map names.
type Catalogue struct {
	names []string
	index map[string]int
}

// NewCatalogue builds a catalogue, names must be unique.
func NewCatalogue(names []string) (Catalogue, error) {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if prev, ok := index[name]; ok {
			return Catalogue{}, fmt.Errorf("maporder: duplicate map %q at %d and %d", name, prev, i)
		}
		index[name] = i
	}
	return Catalogue{
		names: append([]string(nil), names...),
		index: index,
	}, nil
}

func MustCatalogue(names []string) Catalogue {
	c, err := NewCatalogue(names)
	if err != nil {
		panic(err)
	}
	return c
}

// Ordinal returns the position of `name` or Unknown.
func (c Catalogue) Ordinal(name string) int {
	i, ok := c.index[name]
	if !ok {
		return Unknown
	}
	return i
}

func (c Catalogue) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c Catalogue) Len() int {
	return len(c.names)
}

// Names returns a copy of the catalogue in order.
func (c Catalogue) Names() []string {
	return append([]string(nil), c.names...)
}

// Suggest returns the catalogue name closest to `name` along with its
// Jaro-Winkler similarity, it is only meant for hints in diagnostics.
func (c Catalogue) Suggest(name string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, candidate := range c.names {
		score := matchr.JaroWinkler(name, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}
