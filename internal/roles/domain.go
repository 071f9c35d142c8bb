package roles

// Role is a named permission grouping.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Permission is an atomic capability action.
type Permission struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// RoleUser is a member of a role.
type RoleUser struct {
	ID    int64  `json:"user_id"`
	Name  string `json:"user_name"`
	Email string `json:"user_email"`
}
