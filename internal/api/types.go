package api

// ProductRequest is one phone-model row of a form submission.
type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	MaxPrice    int    `json:"max_price"`
	IsPreferred bool   `json:"is_preferred"`
}

// PreferenceRequest is the body of the public submit and edit endpoints.
type PreferenceRequest struct {
	Location         string           `json:"location" binding:"required"`
	Suburb           string           `json:"suburb"`
	NotificationMode string           `json:"notification_mode" binding:"required"`
	Products         []ProductRequest `json:"products"`
}

// LoginRequest is the body of the admin login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued admin token.
type LoginResponse struct {
	Token string `json:"token"`
}
