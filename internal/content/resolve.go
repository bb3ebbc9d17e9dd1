package content

import "context"

// NodeGetter fetches a single content node.
type NodeGetter interface {
	GetNode(ctx context.Context, id string) (Node, error)
}

// ResolveChapterID finds the chapter a node belongs to. A chapter resolves to
// itself and a topic to its parent chapter. Anything deeper reports false. It
// never fetches more than two nodes.
func ResolveChapterID(ctx context.Context, g NodeGetter, id string) (string, bool, error) {
	n, err := g.GetNode(ctx, id)
	if err != nil {
		return "", false, err
	}
	if n.Type == NodeChapter {
		return n.ID, true, nil
	}
	if n.ParentID == "" {
		return "", false, nil
	}

	parent, err := g.GetNode(ctx, n.ParentID)
	if err != nil {
		return "", false, err
	}
	if parent.Type == NodeChapter {
		return parent.ID, true, nil
	}
	return "", false, nil
}

// knownNodes answers GetNode from nodes already loaded before falling back to
// the store.
type knownNodes struct {
	nodes map[string]Node
	next  NodeGetter
}

func newKnownNodes(next NodeGetter, nodes ...Node) *knownNodes {
	k := &knownNodes{nodes: make(map[string]Node, len(nodes)), next: next}
	for _, n := range nodes {
		k.nodes[n.ID] = n
	}
	return k
}

func (k *knownNodes) GetNode(ctx context.Context, id string) (Node, error) {
	if n, ok := k.nodes[id]; ok {
		return n, nil
	}
	n, err := k.next.GetNode(ctx, id)
	if err != nil {
		return Node{}, err
	}
	k.nodes[id] = n
	return n, nil
}
