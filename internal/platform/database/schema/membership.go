// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MembershipTable represents the 'memberships' table.
// Rows are written by the billing side; the back office only counts them.
type MembershipTable struct {
	Table     string
	ID        string
	UserID    string
	PackageID string
	Status    string
	StartsAt  string
	EndsAt    string
}

// Membership is the schema definition for memberships
var Membership = MembershipTable{
	Table:     "memberships",
	ID:        "id",
	UserID:    "user_id",
	PackageID: "package_id",
	Status:    "status",
	StartsAt:  "starts_at",
	EndsAt:    "ends_at",
}

// MembershipStatusActive marks a membership that still references its package.
const MembershipStatusActive = "active"
