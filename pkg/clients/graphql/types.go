package graphql

// Space Snapshot space
type Space struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ProposalsCount int      `json:"proposalsCount,omitempty"`
	Avatar         string   `json:"avatar,omitempty"`
	Verified       bool     `json:"verified,omitempty"`
	Domain         string   `json:"domain,omitempty"`
	Members        []string `json:"members,omitempty"`
}

// ItemID 实现 pagination.Identifiable
func (s Space) ItemID() string { return s.ID }

// WithItemID 实现 pagination.Identifiable
func (s Space) WithItemID(id string) Space {
	s.ID = id
	return s
}

// Proposal 治理提案
type Proposal struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author string `json:"author"`
	Space  *Space `json:"space,omitempty"`
}

// ItemID 实现 pagination.Identifiable
func (p Proposal) ItemID() string { return p.ID }

// WithItemID 实现 pagination.Identifiable
func (p Proposal) WithItemID(id string) Proposal {
	p.ID = id
	return p
}

// OrderDirection 排序方向
type OrderDirection string

const (
	OrderDesc OrderDirection = "desc"
	OrderAsc  OrderDirection = "asc"
)

// ProposalPage 提案分页参数
type ProposalPage struct {
	First int
	Skip  int
	// SpaceID 为空表示不过滤
	SpaceID        string
	OrderBy        string
	OrderDirection OrderDirection
}

// SpacePage space 分页参数
type SpacePage struct {
	First int
	Skip  int
	// OnlyWithProposals 过滤掉没有提案的 space
	OnlyWithProposals bool
}
