package model

// ReplyNode 回复树节点
type ReplyNode struct {
	Reply
	Children []*ReplyNode `json:"children"`
}

// BuildReplyTree 由 parentReplyId 邻接表重建回复树。
// replies 需按 createdAt 升序；父回复不在列表中的回复作为顶层节点。
func BuildReplyTree(replies []Reply) []*ReplyNode {
	nodes := make(map[string]*ReplyNode, len(replies))
	for i := range replies {
		nodes[replies[i].ID] = &ReplyNode{Reply: replies[i], Children: []*ReplyNode{}}
	}

	roots := make([]*ReplyNode, 0)
	for i := range replies {
		n := nodes[replies[i].ID]
		parent, ok := nodes[n.ParentReplyID]
		if n.ParentReplyID == "" || !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}
