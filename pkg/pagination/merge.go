package pagination

import (
	"strconv"
)

// Identifiable 可分页合并的条目
// WithItemID 返回替换了 id 的副本，用于冲突消解
type Identifiable[T any] interface {
	ItemID() string
	WithItemID(id string) T
}

// Mode 合并模式
type Mode int

const (
	// ModeReplace 初次加载 / refetch：结果即为新页
	ModeReplace Mode = iota
	// ModeAppend loadMore：追加新页中未出现过的条目
	ModeAppend
)

// String 返回模式名称
func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// CollisionPolicy 相同 id 冲突的处理策略
type CollisionPolicy int

const (
	// DropDuplicates 保留先出现的条目，丢弃后来者
	DropDuplicates CollisionPolicy = iota
	// Disambiguate 为后来者分配 "{id}_2"、"{id}_3"… 形式的新 id
	// 用于上游在重叠分页中返回重复 id 的情况
	Disambiguate
)

// String 返回策略名称
func (p CollisionPolicy) String() string {
	switch p {
	case DropDuplicates:
		return "drop"
	case Disambiguate:
		return "disambiguate"
	default:
		return "unknown"
	}
}

// ParseCollisionPolicy 解析配置中的策略名称
func ParseCollisionPolicy(s string) (CollisionPolicy, bool) {
	switch s {
	case "", "drop":
		return DropDuplicates, true
	case "disambiguate":
		return Disambiguate, true
	default:
		return DropDuplicates, false
	}
}

// Merge 把 incoming 合并进 existing
//
// replace 模式下结果为 incoming（按策略处理页内重复）；append 模式下结果为
// existing 加上 incoming 中的新条目，existing 的顺序不变，新条目保持到达顺序。
// 返回新切片，不修改入参。
func Merge[T Identifiable[T]](existing, incoming []T, mode Mode, policy CollisionPolicy) []T {
	var base []T
	if mode == ModeAppend {
		base = existing
	}

	result := make([]T, 0, len(base)+len(incoming))
	seen := make(map[string]struct{}, len(base)+len(incoming))
	for _, item := range base {
		result = append(result, item)
		seen[item.ItemID()] = struct{}{}
	}

	// 每个原始 id 下一个可用的后缀
	var nextSuffix map[string]int

	for _, item := range incoming {
		id := item.ItemID()
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			result = append(result, item)
			continue
		}

		if policy != Disambiguate {
			continue
		}

		if nextSuffix == nil {
			nextSuffix = make(map[string]int)
		}
		n := nextSuffix[id]
		if n < 2 {
			n = 2
		}
		candidate := id + "_" + strconv.Itoa(n)
		for {
			if _, taken := seen[candidate]; !taken {
				break
			}
			n++
			candidate = id + "_" + strconv.Itoa(n)
		}
		nextSuffix[id] = n + 1

		seen[candidate] = struct{}{}
		result = append(result, item.WithItemID(candidate))
	}

	return result
}
