package user

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the login/register body. The token also travels in the
// httpOnly session cookie; it is included here for non-browser clients.
type AuthResponse struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}
