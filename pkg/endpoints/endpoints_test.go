package endpoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_FixedEndpoints(t *testing.T) {
	for _, base := range []string{ProductionBaseURL, DevelopmentBaseURL} {
		t.Run(base, func(t *testing.T) {
			e := New(base)

			assert.Equal(t, base, e.Base)
			assert.Equal(t, base+"/login/", e.Login)
			assert.Equal(t, base+"/register/", e.Register)
			assert.Equal(t, base+"/posts/", e.Posts)
			assert.Equal(t, base+"/comments/", e.Comments)
			assert.Equal(t, base+"/token/refresh/", e.Refresh)
			assert.Equal(t, base+"/logout/", e.Logout)
		})
	}
}

func TestParameterizedEndpoints(t *testing.T) {
	e := New(DevelopmentBaseURL)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"post detail numeric", e.PostDetail(42), DevelopmentBaseURL + "/posts/42/"},
		{"post detail string", e.PostDetail("abc"), DevelopmentBaseURL + "/posts/abc/"},
		{"post comments", e.PostComments(uint(7)), DevelopmentBaseURL + "/posts/7/comments/"},
		{"comment detail", e.CommentDetail(3), DevelopmentBaseURL + "/comments/3/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	e := New("http://example.test/api/")

	assert.Equal(t, "http://example.test/api", e.Base)
	assert.Equal(t, "http://example.test/api/posts/42/", e.PostDetail(42))
}

func TestTable(t *testing.T) {
	table := New(ProductionBaseURL).Table()

	assert.Len(t, table, 9)
	assert.Equal(t, ProductionBaseURL+"/posts/{id}/comments/", table["POST_COMMENTS"])
	assert.Equal(t, ProductionBaseURL+"/login/", table["LOGIN"])
}
