// Package endpoints is the single table of REST endpoints exposed by the
// talk back API. The server registers its routes from the relative paths and
// clients build absolute URLs from an Endpoints value.
package endpoints

import (
	"fmt"
	"strings"
)

// Base URLs of the two deployment targets.
const (
	ProductionBaseURL  = "https://spa-talk-back.onrender.com/api"
	DevelopmentBaseURL = "http://127.0.0.1:8000/api"
)

// APIPrefix is the path under which the API is mounted on the server.
const APIPrefix = "/api"

// Route paths relative to APIPrefix, in gin syntax.
const (
	LoginPath         = "/login/"
	RegisterPath      = "/register/"
	RefreshPath       = "/token/refresh/"
	LogoutPath        = "/logout/"
	PostsPath         = "/posts/"
	PostDetailPath    = "/posts/:id/"
	PostCommentsPath  = "/posts/:id/comments/"
	CommentsPath      = "/comments/"
	CommentDetailPath = "/comments/:id/"
)

// Endpoints holds absolute URLs under one base URL. It is built once and
// never mutated.
type Endpoints struct {
	Base     string
	Login    string
	Register string
	Refresh  string
	Logout   string
	Posts    string
	Comments string
}

// New builds the endpoint table under base. A trailing slash on base is
// dropped so that every URL is base + documented suffix.
func New(base string) Endpoints {
	base = strings.TrimRight(base, "/")
	return Endpoints{
		Base:     base,
		Login:    base + LoginPath,
		Register: base + RegisterPath,
		Refresh:  base + RefreshPath,
		Logout:   base + LogoutPath,
		Posts:    base + PostsPath,
		Comments: base + CommentsPath,
	}
}

// PostDetail returns the URL of a single post. The identifier is substituted
// verbatim.
func (e Endpoints) PostDetail(id any) string {
	return fmt.Sprintf("%s/posts/%v/", e.Base, id)
}

// PostComments returns the URL of the comments attached to a post.
func (e Endpoints) PostComments(postID any) string {
	return fmt.Sprintf("%s/posts/%v/comments/", e.Base, postID)
}

// CommentDetail returns the URL of a single comment.
func (e Endpoints) CommentDetail(id any) string {
	return fmt.Sprintf("%s/comments/%v/", e.Base, id)
}

// Table returns every endpoint by logical name, with parameterized entries
// rendered using the placeholder "{id}".
func (e Endpoints) Table() map[string]string {
	return map[string]string{
		"LOGIN":          e.Login,
		"REGISTER":       e.Register,
		"TOKEN_REFRESH":  e.Refresh,
		"LOGOUT":         e.Logout,
		"POSTS":          e.Posts,
		"POST_DETAIL":    e.PostDetail("{id}"),
		"COMMENTS":       e.Comments,
		"POST_COMMENTS":  e.PostComments("{id}"),
		"COMMENT_DETAIL": e.CommentDetail("{id}"),
	}
}
