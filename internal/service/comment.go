package service

import (
	"context"
	"strings"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

// CommentNode is a comment with its direct replies.
type CommentNode struct {
	model.Comment
	Replies []*CommentNode `json:"replies"`
}

// ThreadedComment is one comment in display order with its nesting depth.
type ThreadedComment struct {
	model.Comment
	Depth int `json:"depth"`
}

// AddCommentInput holds a new comment or reply.
type AddCommentInput struct {
	DeliverableID string  `json:"deliverable_id"`
	ParentID      *string `json:"parent_id"`
	Body          string  `json:"body"`
}

// CommentTree nests comments under their parents, keeping input order among
// siblings. Comments whose parent is absent become roots.
func CommentTree(items []model.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(items))
	for _, c := range items {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for _, c := range items {
		node := nodes[c.ID]
		parent, ok := nodes[strValue(c.ParentID)]
		if !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}
	return roots
}

// FlattenThreads walks the trees depth-first with an explicit stack, so
// arbitrarily deep reply chains cannot exhaust the call stack. A cycle in
// corrupted data is visited once.
func FlattenThreads(roots []*CommentNode) []ThreadedComment {
	type frame struct {
		node  *CommentNode
		depth int
	}

	var out []ThreadedComment
	visited := make(map[*CommentNode]bool)
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[top.node] {
			continue
		}
		visited[top.node] = true
		out = append(out, ThreadedComment{Comment: top.node.Comment, Depth: top.depth})

		for i := len(top.node.Replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{top.node.Replies[i], top.depth + 1})
		}
	}
	return out
}

// ListComments returns the deliverable's discussion as a tree.
func (e *Engine) ListComments(ctx context.Context, deliverableID string, actor model.Actor) ([]*CommentNode, error) {
	d, err := e.store.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, d.ProjectID, actor); err != nil {
		return nil, hideAs(err, "deliverable")
	}
	comments, err := e.store.ListComments(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	return CommentTree(comments), nil
}

// AddComment stores a comment and notifies the assignee, the project's
// members and, for replies, the parent's author.
func (e *Engine) AddComment(ctx context.Context, in AddCommentInput, actor model.Actor) (*model.Comment, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, model.Invalid("comentário vazio")
	}

	d, err := e.store.GetDeliverable(ctx, in.DeliverableID)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, d.ProjectID, actor); err != nil {
		return nil, hideAs(err, "deliverable")
	}

	var parent *model.Comment
	if id := strValue(in.ParentID); id != "" {
		parent, err = e.store.GetComment(ctx, id)
		if err != nil {
			return nil, err
		}
		if parent.DeliverableID != d.ID {
			return nil, model.Invalid("comentário pai pertence a outro deliverable")
		}
	} else {
		in.ParentID = nil
	}

	c := &model.Comment{
		DeliverableID: d.ID,
		ParentID:      in.ParentID,
		AuthorID:      actor.UserID,
		Body:          in.Body,
		CreatedAt:     e.now(),
	}
	if err := e.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	notify := NotifyInput{
		ProjectID:  d.ProjectID,
		ActorID:    actor.UserID,
		AssigneeID: strValue(d.AssigneeID),
		Template:   "comment",
		Title:      "New comment on " + d.Title,
		Body:       c.Body,
		Link:       e.ledger.ProjectLink(d.ProjectID, "deliverables", d.ID),
	}
	if parent != nil {
		notify.ParentAuthorID = parent.AuthorID
		notify.Title = "New reply on " + d.Title
	}
	BestEffort(ctx, "comment-notify", func(ctx context.Context) error {
		e.ledger.Notify(ctx, notify)
		return nil
	})

	return c, nil
}
