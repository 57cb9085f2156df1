package schemas

import z "github.com/Oudwins/zog"

type User struct {
	ID        int64  `json:"id" yaml:"id"`
	GithubID  string `json:"github_id" yaml:"github_id"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

type LoginRequest struct {
	GithubID  string `json:"github_id" zog:"github_id"`
	Username  string `json:"username" zog:"username"`
	Email     string `json:"email,omitempty" zog:"email"`
	AvatarURL string `json:"avatar_url,omitempty" zog:"avatar_url"`
}

var LoginRequestSchema = z.Struct(z.Shape{
	"GithubID":  z.String().Required(z.Message("github_id is required")).Trim(),
	"Username":  z.String().Required(z.Message("username is required")).Trim(),
	"Email":     z.String().Optional().Trim(),
	"AvatarURL": z.String().Optional().Trim(),
})
