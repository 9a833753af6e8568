package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type TokenErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// FieldErrors is the 400 body for validation failures, keyed by field name.
type FieldErrors map[string][]string

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuthMeResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}
