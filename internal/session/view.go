package session

import "github.com/prepdeck/authbridge/internal/identity"

// UserView is the user half of the session view.
type UserView struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"image,omitempty"`
}

// View is the read-only projection of a session token handed to application
// code. It is recomputed from the token on every access and never stored.
type View struct {
	User         UserView `json:"user"`
	BackendToken string   `json:"backendAccessToken,omitempty"`
}

// Materialize deterministically projects a token into a view. It performs
// no I/O; the only failure mode is a missing token.
func Materialize(t *Token) (View, error) {
	if t == nil {
		return View{}, identity.ErrMissingToken
	}
	return View{
		User: UserView{
			ID:        t.Subject,
			Role:      t.Role,
			Name:      t.Name,
			Email:     t.Email,
			AvatarURL: t.AvatarURL,
		},
		BackendToken: t.BackendToken,
	}, nil
}
