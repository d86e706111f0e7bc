package cachectl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Descriptor 可缓存查询的描述，与后端的缓存键推导保持一致
type Descriptor struct {
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	QueryParams map[string]string `json:"query_params"`
	Body        any               `json:"body,omitempty"`
	UserContext string            `json:"user_context,omitempty"`
}

// NewDescriptor 创建描述
func NewDescriptor(method, endpoint string) Descriptor {
	return Descriptor{
		Endpoint:    endpoint,
		Method:      method,
		QueryParams: map[string]string{},
	}
}

// WithParam 增加查询参数，返回副本
func (d Descriptor) WithParam(key, value string) Descriptor {
	params := make(map[string]string, len(d.QueryParams)+1)
	for k, v := range d.QueryParams {
		params[k] = v
	}
	params[key] = value
	d.QueryParams = params
	return d
}

// WithBody 设置请求体，返回副本
func (d Descriptor) WithBody(body any) Descriptor {
	d.Body = body
	return d
}

// WithUserContext 设置用户上下文，返回副本
func (d Descriptor) WithUserContext(user string) Descriptor {
	d.UserContext = user
	return d
}

// MarshalJSON query_params 总是输出对象而不是 null
func (d Descriptor) MarshalJSON() ([]byte, error) {
	type plain Descriptor
	if d.QueryParams == nil {
		d.QueryParams = map[string]string{}
	}
	return json.Marshal(plain(d))
}

// Key 与后端相同的缓存键："query:" + sha256(endpoint, method, 排序后的参数, body, user_context)
func (d Descriptor) Key() string {
	h := sha256.New()
	h.Write([]byte(d.Endpoint))
	h.Write([]byte(d.Method))

	for _, k := range sortedKeys(d.QueryParams) {
		h.Write([]byte(k))
		h.Write([]byte(d.QueryParams[k]))
	}

	if d.Body != nil {
		if body, err := canonicalJSON(d.Body); err == nil {
			h.Write(body)
		}
	}

	if d.UserContext != "" {
		h.Write([]byte(d.UserContext))
	}

	return "query:" + hex.EncodeToString(h.Sum(nil))
}

// Description 可读描述，例如 "GET related-proposals?limit=5&query=aave"
func (d Descriptor) Description() string {
	if len(d.QueryParams) == 0 {
		return d.Method + " " + d.Endpoint
	}
	pairs := make([]string, 0, len(d.QueryParams))
	for _, k := range sortedKeys(d.QueryParams) {
		pairs = append(pairs, k+"="+d.QueryParams[k])
	}
	return d.Method + " " + d.Endpoint + "?" + strings.Join(pairs, "&")
}

// Matches 判断列表中的条目是否对应该描述
func (d Descriptor) Matches(info CachedQueryInfo) bool {
	if info.CacheKey != "" && info.CacheKey == d.Key() {
		return true
	}
	if info.Endpoint != d.Endpoint || !strings.EqualFold(info.Method, d.Method) {
		return false
	}
	if len(info.QueryParams) != len(d.QueryParams) {
		return false
	}
	for k, v := range d.QueryParams {
		if info.QueryParams[k] != v {
			return false
		}
	}
	return info.UserContext == d.UserContext
}

// canonicalJSON 对象键按字典序输出，与后端 serde_json::Value 的序列化一致
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AnalysisDescriptor 提案分析：POST /pre-filter
func AnalysisDescriptor(body any) Descriptor {
	return NewDescriptor(http.MethodPost, "/pre-filter").WithBody(body)
}

// CommunityDescriptor 社区调研：POST /community
// 后端以 topic 参数而不是请求体登记该缓存
func CommunityDescriptor(topic string) Descriptor {
	return NewDescriptor(http.MethodPost, "/community").WithParam("topic", topic)
}

// CommunityLookupDescriptor 社区调研缓存读取：GET /community?topic=
func CommunityLookupDescriptor(topic string) Descriptor {
	return NewDescriptor(http.MethodGet, "/community").WithParam("topic", topic)
}

// RelatedProposalsDescriptor 相关提案：GET related-proposals
// 后端登记的 endpoint 不带前导斜杠
func RelatedProposalsDescriptor(query string, limit int) Descriptor {
	return NewDescriptor(http.MethodGet, "related-proposals").
		WithParam("query", query).
		WithParam("limit", strconv.Itoa(limit))
}

// RoadmapDescriptor 路线图：POST /roadmap
func RoadmapDescriptor(body any) Descriptor {
	return NewDescriptor(http.MethodPost, "/roadmap").WithBody(body)
}
