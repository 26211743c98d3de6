package models

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
*/
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
	IsBanned string
}

/*
|--------------------------------------------------------------------------
| REQUEST / RESPONSE
|--------------------------------------------------------------------------
*/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Operator bool   `json:"operator"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	SubjectID string
	Operator  bool
}

func ToUserResponse(u User, operator bool) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Operator: operator,
	}
}
