// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns used by raw-SQL stores.
package schema

// PrincipalTable represents a table of authenticatable principals.
// End users and operators share the layout but live in separate tables.
type PrincipalTable struct {
	Table              string
	ID                 string
	Name               string
	Username           string
	Email              string
	Password           string
	Status             string
	LastLoginAt        string
	LastLoginIP        string
	LastLoginUserAgent string
	CreatedAt          string
	UpdatedAt          string
	DeletedAt          string
}

func principal(table string) PrincipalTable {
	return PrincipalTable{
		Table:              table,
		ID:                 "id",
		Name:               "name",
		Username:           "username",
		Email:              "email",
		Password:           "password_hash",
		Status:             "status",
		LastLoginAt:        "last_login_at",
		LastLoginIP:        "last_login_ip",
		LastLoginUserAgent: "last_login_user_agent",
		CreatedAt:          "created_at",
		UpdatedAt:          "updated_at",
		DeletedAt:          "deleted_at",
	}
}

// Users is the schema definition for end users (guard "user").
var Users = principal("users")

// Admins is the schema definition for back-office operators (guard "admin").
var Admins = principal("admins")

// Columns returns all standard column names
func (t PrincipalTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Username, t.Email, t.Password, t.Status,
		t.LastLoginAt, t.LastLoginIP, t.LastLoginUserAgent,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
