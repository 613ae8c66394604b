package comment

import (
	"context"
	"sort"
	"sync"
)

var _ commentRepo = (*repoMock)(nil)

// mockBlog is the minimal parent blog shape the mock needs for joins.
type mockBlog struct {
	ID       int
	Title    string
	AuthorID int
}

type repoMock struct {
	Comments map[int]*Comment
	Blogs    map[int]*mockBlog
	nextID   int
	mutex    sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Comments: make(map[int]*Comment),
		Blogs:    make(map[int]*mockBlog),
		nextID:   1,
	}
}

func (r *repoMock) CommentsCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Comments)
}

func (r *repoMock) Add(_ context.Context, c *Comment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Blogs[c.BlogID]; !ok {
		return ErrBlogNotFound
	}

	if c.ID == 0 {
		c.ID = r.nextID
		r.nextID++
	} else if c.ID >= r.nextID {
		r.nextID = c.ID + 1
	}

	r.Comments[c.ID] = c
	return nil
}

func (r *repoMock) ApprovedForBlog(_ context.Context, blogID int) ([]*Comment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var comments []*Comment
	for id := range r.Comments {
		c := r.Comments[id]
		if c.BlogID == blogID && c.IsApproved {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func (r *repoMock) ListForAuthor(_ context.Context, authorID int) ([]*ModerationEntry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var entries []*ModerationEntry
	for id := range r.Comments {
		entry := r.entry(id)
		if entry.BlogAuthorID == authorID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *repoMock) ListAll(_ context.Context) ([]*ModerationEntry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var entries []*ModerationEntry
	for id := range r.Comments {
		entries = append(entries, r.entry(id))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *repoMock) GetWithBlog(_ context.Context, id int) (*ModerationEntry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Comments[id]; !ok {
		return nil, ErrCommentNotFound
	}
	return r.entry(id), nil
}

func (r *repoMock) Approve(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c, ok := r.Comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	c.IsApproved = true
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Comments[id]; !ok {
		return ErrCommentNotFound
	}
	delete(r.Comments, id)
	return nil
}

func (r *repoMock) StatsForAuthor(_ context.Context, authorID int) (Stats, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var stats Stats
	for id := range r.Comments {
		entry := r.entry(id)
		if entry.BlogAuthorID != authorID {
			continue
		}
		stats.Total++
		if entry.IsApproved {
			stats.Approved++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

func (r *repoMock) Count(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Comments), nil
}

func (r *repoMock) entry(commentID int) *ModerationEntry {
	c := r.Comments[commentID]
	entry := &ModerationEntry{Comment: *c}
	if b, ok := r.Blogs[c.BlogID]; ok {
		entry.BlogTitle = b.Title
		entry.BlogAuthorID = b.AuthorID
	}
	return entry
}
