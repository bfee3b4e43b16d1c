package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func comment(id, parent string) model.Comment {
	c := model.Comment{ID: id, DeliverableID: "d1", Body: id}
	if parent != "" {
		c.ParentID = &parent
	}
	return c
}

func TestCommentTree_DeepChain(t *testing.T) {
	const depth = 10000
	items := make([]model.Comment, depth)
	for i := range items {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("c%d", i-1)
		}
		items[i] = comment(fmt.Sprintf("c%d", i), parent)
	}

	roots := CommentTree(items)
	if len(roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(roots))
	}
	flat := FlattenThreads(roots)
	if len(flat) != depth {
		t.Fatalf("flattened = %d, want %d", len(flat), depth)
	}
	if last := flat[depth-1]; last.ID != "c9999" || last.Depth != depth-1 {
		t.Errorf("last = %s at depth %d", last.ID, last.Depth)
	}
}

func TestCommentTree_OrderAndOrphans(t *testing.T) {
	items := []model.Comment{
		comment("a", ""),
		comment("b", ""),
		comment("a1", "a"),
		comment("orphan", "gone"),
		comment("a2", "a"),
		comment("a1x", "a1"),
	}

	flat := FlattenThreads(CommentTree(items))
	var got []string
	for _, c := range flat {
		got = append(got, fmt.Sprintf("%s:%d", c.ID, c.Depth))
	}
	want := []string{"a:0", "a1:1", "a1x:2", "a2:1", "b:0", "orphan:0"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestCommentTree_CycleVisitedOnce(t *testing.T) {
	a := &CommentNode{Comment: comment("a", "")}
	b := &CommentNode{Comment: comment("b", "a")}
	a.Replies = []*CommentNode{b}
	b.Replies = []*CommentNode{a}

	if flat := FlattenThreads([]*CommentNode{a}); len(flat) != 2 {
		t.Errorf("flattened = %d, want 2", len(flat))
	}
}

// TestCommentTreeProperties checks that nesting never loses or repeats a comment.
func TestCommentTreeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every comment appears exactly once", prop.ForAll(
		func(parents []int) bool {
			items := make([]model.Comment, len(parents))
			for i, p := range parents {
				parent := ""
				// parents point backwards, or nowhere
				if i > 0 && p >= 0 {
					parent = fmt.Sprintf("c%d", p%i)
				}
				items[i] = comment(fmt.Sprintf("c%d", i), parent)
			}

			flat := FlattenThreads(CommentTree(items))
			if len(flat) != len(items) {
				return false
			}
			seen := make(map[string]bool)
			for _, c := range flat {
				if seen[c.ID] {
					return false
				}
				seen[c.ID] = true
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-5, 1000)),
	))

	properties.TestingRun(t)
}

func TestAddComment_NotifiesParentAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2025, 1, 15))
	d, err := f.engine.CreateDeliverable(ctx, CreateDeliverableInput{ProjectID: f.project.ID, Title: "Login"}, f.internal)
	if err != nil {
		t.Fatal(err)
	}

	root, err := f.engine.AddComment(ctx, AddCommentInput{DeliverableID: d.ID, Body: "Pode revisar?"}, f.client)
	if err != nil {
		t.Fatal(err)
	}
	pmNotes, _ := f.engine.ListNotifications(ctx, f.internal, false)
	if len(pmNotes) != 1 {
		t.Errorf("internal notifications = %d, want 1", len(pmNotes))
	}

	if _, err := f.engine.AddComment(ctx, AddCommentInput{DeliverableID: d.ID, ParentID: &root.ID, Body: "Revisado"}, f.internal); err != nil {
		t.Fatal(err)
	}
	clientNotes, _ := f.engine.ListNotifications(ctx, f.client, false)
	if len(clientNotes) != 1 || clientNotes[0].Title != "New reply on Login" {
		t.Errorf("client notifications = %+v", clientNotes)
	}

	tree, err := f.engine.ListComments(ctx, d.ID, f.client)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || len(tree[0].Replies) != 1 {
		t.Errorf("tree = %+v", tree)
	}

	if _, err := f.engine.AddComment(ctx, AddCommentInput{DeliverableID: d.ID, Body: "  "}, f.client); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty comment error = %v", err)
	}
}

func TestAddComment_NotificationFailureKeepsComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2025, 1, 15))
	d, err := f.engine.CreateDeliverable(ctx, CreateDeliverableInput{ProjectID: f.project.ID, Title: "Login"}, f.internal)
	if err != nil {
		t.Fatal(err)
	}

	f.store.failNotifications = true
	f.mailer.fail = true
	if _, err := f.engine.AddComment(ctx, AddCommentInput{DeliverableID: d.ID, Body: "Ok"}, f.client); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	comments, _ := f.store.ListComments(ctx, d.ID)
	if len(comments) != 1 {
		t.Errorf("comments = %d, want 1", len(comments))
	}
}
