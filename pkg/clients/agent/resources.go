package agent

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var resourceTypes = map[string]string{
	"docs":          "Documentation",
	"documentation": "Documentation",
	"whitepaper":    "Documentation",
	"spec":          "Documentation",
	"specs":         "Documentation",
	"forum":         "Forum",
	"governance":    "Forum",
	"discord":       "Discord",
	"telegram":      "Telegram",
	"github":        "GitHub",
	"gitlab":        "GitHub",
	"newsletter":    "Newsletter",
	"blog":          "Blog",
	"conference":    "Conference",
	"meetup":        "Meetup",
	"reddit":        "Reddit",
	"podcast":       "Podcast",
	"youtube":       "YouTube",
	"twitter":       "Twitter",
	"academic":      "Academic",
	"paper":         "Academic",
	"research":      "Academic",
}

// NormalizeResourceType 把模型返回的渠道类型归一到固定的分类
// 未知类型只做首字母大写
func NormalizeResourceType(t string) string {
	if category, ok := resourceTypes[strings.ToLower(strings.TrimSpace(t))]; ok {
		return category
	}
	if t == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToUpper(r)) + strings.ToLower(t[size:])
}

// GroupResourcesByType 按归一后的类型分组，组内按名称排序
func GroupResourcesByType(resources []DiscussionResource) map[string][]DiscussionResource {
	grouped := make(map[string][]DiscussionResource)
	for _, r := range resources {
		t := NormalizeResourceType(r.Type)
		grouped[t] = append(grouped[t], r)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return strings.ToLower(group[i].Name) < strings.ToLower(group[j].Name)
		})
	}
	return grouped
}
