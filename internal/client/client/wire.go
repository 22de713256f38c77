package client

import "github.com/dmitrijs2005/taxbox/internal/client/models"

// Message shapes shared by the REST and gRPC transports.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type pingResponse struct {
	Status string `json:"status"`
}

type listReturnsRequest struct{}

type listReturnsResponse struct {
	TaxReturns []models.TaxReturn `json:"tax_returns"`
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

type uploadResponse struct {
	ID string `json:"id,omitempty"`
}

type exportRequest struct {
	ID string `json:"id"`
}

type exportResponse struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type empty struct{}

// errorResponse is the REST error body.
type errorResponse struct {
	Detail string `json:"detail"`
}
