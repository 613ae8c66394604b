package user

import (
	"context"
	"strings"
	"sync"
)

var _ userRepo = (*repoMock)(nil)

type repoMock struct {
	Users  map[int]*User
	nextID int
	mutex  sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users:  make(map[int]*User),
		nextID: 1,
	}
}

func (r *repoMock) UsersCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Users)
}

func (r *repoMock) Create(_ context.Context, u *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.Users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}

	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	} else if u.ID >= r.nextID {
		r.nextID = u.ID + 1
	}

	r.Users[u.ID] = u
	return nil
}

func (r *repoMock) GetByID(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) UpdateProfile(_ context.Context, id int, name, bio string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Name = name
	u.Bio = bio
	return u, nil
}
