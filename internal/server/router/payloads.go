package router

type getUserByTokenPayload struct {
	Token string `json:"token" validate:"required"`
}

type generateTokenPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type generateAccessTokenPayload struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type changePasswordPayload struct {
	Username    string `json:"username" validate:"required"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
}

type registerPayload struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=STANDARD_REGISTRY USER AUDITOR"`
}

type providerTokenPayload struct {
	Username   string `json:"username" validate:"required,max=128"`
	Role       string `json:"role" validate:"required,oneof=STANDARD_REGISTRY USER AUDITOR"`
	Provider   string `json:"provider" validate:"required"`
	ProviderID string `json:"providerId" validate:"required"`
}

type logoutPayload struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
