package auth

import "errors"

var ErrForbidden = errors.New("forbidden")

// CanModifyBlog decides whether the caller may delete a blog or toggle its
// publish state: the blog's author may, the admin may, nobody else.
// Pure decision over already loaded data, no I/O here.
func CanModifyBlog(id Identity, blogAuthorID int) error {
	switch id.Actor {
	case ActorAdmin:
		return nil
	case ActorUser:
		if id.UserID != 0 && id.UserID == blogAuthorID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// CanModerateComment decides whether the caller may approve or delete a
// comment. Ownership is transitive through the parent blog: the blog's author
// moderates all comments on their blog, regardless of who submitted them.
// The comment's own submitter gets no special rights.
func CanModerateComment(id Identity, blogAuthorID int) error {
	return CanModifyBlog(id, blogAuthorID)
}
