package notion

import "context"

// BlockTree fetches the children of rootID and expands the whole subtree
// with an explicit worklist. Synced copies are expanded from their original
// block. Each block id is fetched at most once: a second reference to the
// same content reuses the first fetch, which also stops reference cycles
// from re-fetching forever. Renderers walking the result must still guard
// against cycles on the current path.
func (c *Client) BlockTree(ctx context.Context, rootID string) ([]*Block, error) {
	roots, err := c.ListBlockChildren(ctx, rootID)
	if err != nil {
		return nil, err
	}

	fetched := map[string][]*Block{rootID: roots}
	stack := expandable(roots)

	for len(stack) > 0 {
		block := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		source := childSource(block)
		if children, ok := fetched[source]; ok {
			block.Children = children
			continue
		}

		children, err := c.ListBlockChildren(ctx, source)
		if err != nil {
			return nil, err
		}
		fetched[source] = children
		block.Children = children
		stack = append(stack, expandable(children)...)
	}

	c.logger.Debug("notion.tree.fetched", "root_id", rootID, "fetches", len(fetched))
	return roots, nil
}

func childSource(b *Block) string {
	if from := b.SyncedFrom(); from != "" {
		return from
	}
	return b.ID
}

// expandable returns the blocks whose children must be fetched, in reverse
// so the stack pops them in document order. child_page blocks are separate
// pages and are never expanded.
func expandable(blocks []*Block) []*Block {
	var out []*Block
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		if b.Type == "child_page" || b.Type == "child_database" {
			continue
		}
		if b.HasChildren || b.SyncedFrom() != "" {
			out = append(out, b)
		}
	}
	return out
}
