package handler

// Field presence is checked by the service so that any missing field yields
// the same message; the tags here only bound the sizes the stores accept.

type registerRequest struct {
	Username string `json:"username" validate:"max=255"`
	Email    string `json:"email"    validate:"max=255"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"max=255"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type logoutRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type loginResponse struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type identityResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
