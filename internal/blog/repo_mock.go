package blog

import (
	"context"
	"sort"
	"sync"
)

var _ blogRepo = (*repoMock)(nil)

type repoMock struct {
	Posts  map[int]*Blog
	nextID int
	mutex  sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts:  make(map[int]*Blog),
		nextID: 1,
	}
}

func (r *repoMock) PostsCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Posts)
}

func (r *repoMock) Add(_ context.Context, b *Blog) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if b.Title == "" || b.Description == "" || b.Category == "" {
		return ErrMissingBlogFields
	}

	if b.ID == 0 {
		b.ID = r.nextID
		r.nextID++
	} else if b.ID >= r.nextID {
		r.nextID = b.ID + 1
	}
	if b.Likes == nil {
		b.Likes = []int{}
	}

	r.Posts[b.ID] = b
	return nil
}

func (r *repoMock) GetByID(_ context.Context, id int) (*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return nil, ErrBlogNotFound
	}
	return b, nil
}

func (r *repoMock) AllPublished(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var blogs []*Blog
	for id := range r.Posts {
		if r.Posts[id].IsPublished {
			blogs = append(blogs, r.Posts[id])
		}
	}
	sort.Slice(blogs, func(i, j int) bool {
		return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
	})
	return blogs, nil
}

func (r *repoMock) All(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var blogs []*Blog
	for id := range r.Posts {
		blogs = append(blogs, r.Posts[id])
	}
	sort.Slice(blogs, func(i, j int) bool {
		return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
	})
	return blogs, nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[id]; !ok {
		return ErrBlogNotFound
	}
	delete(r.Posts, id)
	return nil
}

func (r *repoMock) TogglePublish(_ context.Context, id int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return false, ErrBlogNotFound
	}
	b.IsPublished = !b.IsPublished
	return b.IsPublished, nil
}

func (r *repoMock) IncrementViews(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return ErrBlogNotFound
	}
	b.Views++
	return nil
}

func (r *repoMock) ToggleLike(_ context.Context, blogID, userID int) (bool, int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[blogID]
	if !ok {
		return false, 0, ErrBlogNotFound
	}

	for i, likerID := range b.Likes {
		if likerID == userID {
			b.Likes = append(b.Likes[:i], b.Likes[i+1:]...)
			return false, len(b.Likes), nil
		}
	}

	b.Likes = append(b.Likes, userID)
	return true, len(b.Likes), nil
}
