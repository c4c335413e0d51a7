package feed

import (
	"testing"
	"time"
)

func TestSortPostsNewestFirst(t *testing.T) {
	now := time.Now()
	posts := []Post{
		{AuthorName: "oldest", CreatedAt: now.Add(-3 * time.Hour)},
		{AuthorName: "newest", CreatedAt: now.Add(-1 * time.Hour)},
		{AuthorName: "middle", CreatedAt: now.Add(-2 * time.Hour)},
	}

	SortPosts(posts)

	expected := []string{"newest", "middle", "oldest"}
	for i, name := range expected {
		if posts[i].AuthorName != name {
			t.Errorf("position %d: got %s, want %s", i, posts[i].AuthorName, name)
		}
	}
}

func TestSortPostsStableOnEqualTimestamps(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	posts := []Post{
		{AuthorName: "first", CreatedAt: ts},
		{AuthorName: "second", CreatedAt: ts},
		{AuthorName: "third", CreatedAt: ts},
	}

	SortPosts(posts)

	expected := []string{"first", "second", "third"}
	for i, name := range expected {
		if posts[i].AuthorName != name {
			t.Errorf("equal timestamps should keep insertion order, position %d: got %s, want %s",
				i, posts[i].AuthorName, name)
		}
	}
}

func TestSortPostsMixed(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	posts := []Post{
		{AuthorName: "a", CreatedAt: ts},
		{AuthorName: "b", CreatedAt: ts.Add(time.Hour)},
		{AuthorName: "c", CreatedAt: ts},
	}

	SortPosts(posts)

	expected := []string{"b", "a", "c"}
	for i, name := range expected {
		if posts[i].AuthorName != name {
			t.Errorf("position %d: got %s, want %s", i, posts[i].AuthorName, name)
		}
	}
}
