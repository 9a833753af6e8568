package model

import "time"

type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Codename    string    `json:"codename"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Codename    string `json:"codename"`
}

type Permission struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

type PermissionInput struct {
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

type AssignPermissionsRequest struct {
	Permissions []int64 `json:"permissions"`
}
